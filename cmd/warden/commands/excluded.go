package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewExcludedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "excluded",
		Short: "Show tools withheld from the model by policy",
		RunE:  runExcluded,
	}
	cmd.Flags().Bool("offered", false, "Show the offered tool list instead")
	return cmd
}

func runExcluded(cmd *cobra.Command, args []string) error {
	sess, err := loadSession()
	if err != nil {
		return err
	}
	printLoadErrors(sess.loadErrors)

	if offered, _ := cmd.Flags().GetBool("offered"); offered {
		infos := sess.registry.Offered(sess.engine.ExcludedToolSet())
		if len(infos) == 0 {
			fmt.Println("No tools offered.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %s\n", info.Name, info.Desc)
		}
		return nil
	}

	excluded := sess.engine.ExcludedTools()
	if len(excluded) == 0 {
		fmt.Println("No tools excluded.")
		return nil
	}
	for _, name := range excluded {
		fmt.Println(name)
	}
	return nil
}
