package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	hll "github.com/EIDA/statsboard-sub000"
)

// NewFoldCommand creates the fold command.
func NewFoldCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fold <hex>",
		Short: "Reduce the precision of an encoded estimator",
		Long: `Fold an encoded estimator down to 2^log2m registers and print the result,
hex encoded. Folding trades accuracy for size; the input is not modified.`,
		Args: cobra.ExactArgs(1),
		RunE: runFold,
	}
	cmd.Flags().Uint("log2m", hll.DefaultLog2m, "target log2m, between 1 and the input's log2m")
	return cmd
}

func runFold(cmd *cobra.Command, args []string) error {
	target, err := cmd.Flags().GetUint("log2m")
	if err != nil {
		return err
	}

	h, err := hll.FromHexString(args[0])
	if err != nil {
		return err
	}
	folded, err := h.Fold(target)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), folded.ToHexString())
	return err
}
