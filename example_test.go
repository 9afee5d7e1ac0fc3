package hll

import (
	"fmt"

	"github.com/twmb/murmur3"
)

// A simple walkthrough on how to use Hll.
func Example() {
	// 2^11 registers of 5 bits each: 1.3KB of storage, about 2.3% standard error.
	h, err := New(11, 5)
	if err != nil {
		panic(err)
	}

	// You can use any good 64-bit hash function. The estimator only ever sees the hash.
	for i := 0; i < 10000; i++ {
		h.AddRaw(murmur3.Sum64([]byte(fmt.Sprintf("client-%d", i))))
	}

	// Duplicates do not affect the cardinality. The following loop has no effect.
	for i := 0; i < 1000; i++ {
		h.AddRaw(murmur3.Sum64([]byte("client-1")))
	}

	estimate := h.Cardinality()
	fmt.Println(estimate > 9000 && estimate < 11000)
	// Output: true
}

// Estimators usually arrive already encoded, one per row of a usage report. Decode each one and
// union them into an accumulator per bucket.
func Example_union() {
	january, _ := New(11, 5)
	february, _ := New(11, 5)
	for i := 0; i < 3000; i++ {
		january.AddRaw(murmur3.Sum64([]byte(fmt.Sprintf("client-%d", i))))
	}
	for i := 2000; i < 5000; i++ {
		february.AddRaw(murmur3.Sum64([]byte(fmt.Sprintf("client-%d", i))))
	}

	rows := []string{january.ToHexString(), february.ToHexString()}

	var total *Hll
	for _, row := range rows {
		decoded, err := FromHexString(row)
		if err != nil {
			panic(err)
		}
		if total == nil {
			total = decoded
			continue
		}
		if err := total.Union(decoded); err != nil {
			panic(err)
		}
	}

	estimate := total.Cardinality()
	fmt.Println(estimate > 4500 && estimate < 5500)
	// Output: true
}

func ExampleHll_Fold() {
	h := NewDefault()
	folded, err := h.Fold(10)
	if err != nil {
		panic(err)
	}
	fmt.Println(folded.Log2m(), folded.NumRegisters(), folded.SizeInBytes())
	// Output: 10 1024 643
}
