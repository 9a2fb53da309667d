package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/output"
)

var treeCmd = &cobra.Command{
	Use:   "tree <script>",
	Short: "List the element tree of a script",
	Long: `Print every element of every application in a script as a flat list,
each with the path of compact role codes leading to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().String("roles", "", "Comma-separated roles to include (e.g. \"btn,input\")")
}

func runTree(cmd *cobra.Command, args []string) error {
	rolesStr, _ := cmd.Flags().GetString("roles")

	sess, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer sess.Close()

	res := sess.Tree()
	if rolesStr != "" {
		res.Elements = filterRoles(res.Elements, strings.Split(rolesStr, ","))
	}
	return output.Fprint(cmd.OutOrStdout(), res)
}

// filterRoles keeps elements whose role or compact role code is listed.
func filterRoles(elements []model.FlatElement, roles []string) []model.FlatElement {
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			want[r] = true
		}
	}
	var kept []model.FlatElement
	for _, el := range elements {
		if want[el.Role] || want[model.RoleMap[el.Role]] {
			kept = append(kept, el)
		}
	}
	return kept
}
