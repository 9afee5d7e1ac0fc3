// This is a Go implementation of the HyperLogLog cardinality estimator from "HyperLogLog: the
// analysis of a near-optimal cardinality estimation algorithm" by Flajolet, Fusy, Gandouet and
// Meunier, using the register layout and storage format popularised by Aggregate Knowledge
// (java-hll, postgresql-hll). Given a stream of hashed elements, it estimates the number of unique
// elements in the stream. The estimation error is controlled by the number of registers.
//
// Only the dense "FULL" representation is implemented. Estimators produced elsewhere in that
// format can be decoded with FromHexString, unioned together and queried with Cardinality, which
// is how usage statistics are re-aggregated by month, country or station without ever holding the
// underlying client sets.
//
// An Hll is not safe for concurrent mutation. Read-only methods may run concurrently as long as
// no goroutine is calling AddRaw or Union on the same instance.
//
// The storage format is described at
// https://github.com/aggregateknowledge/hll-storage-spec/blob/master/STORAGE.md
package hll
