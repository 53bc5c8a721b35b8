package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/yojana/internal/schema"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the RuleDocument JSON Schema",
	Long:  `Print the JSON Schema that stored RuleDocuments are validated against.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.Generate()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
