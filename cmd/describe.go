package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-narrator/internal/output"
)

var describeCmd = &cobra.Command{
	Use:   "describe <script> <element-id>",
	Short: "Print what focusing an element would announce",
	Long: `Describe an element of a script the way the focus handler for its role
would announce it. With --after-replay the script steps run first, so the
description reflects the final state of the element.`,
	Args: cobra.ExactArgs(2),
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("after-replay", false, "Replay the script steps before describing")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	afterReplay, _ := cmd.Flags().GetBool("after-replay")

	sess, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer sess.Close()

	if afterReplay {
		if _, err := sess.Run(cmd.Context()); err != nil {
			return err
		}
	}
	res, err := sess.Describe(args[1])
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), res)
}
