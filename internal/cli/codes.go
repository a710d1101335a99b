package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ifjconform/internal/taxonomy"
)

// CodeInfo describes one compiler exit code.
type CodeInfo struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewCodesCommand creates the codes command.
func NewCodesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List the compiler exit codes",
		Long: `List every exit code the compiler under test may return, with the
symbolic name accepted in registry files.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format: rootOpts.Format,
				Writer: cmd.OutOrStdout(),
			}
			return outputCodes(formatter, codeTable())
		},
	}
}

func codeTable() []CodeInfo {
	codes := taxonomy.All()
	infos := make([]CodeInfo, len(codes))
	for i, c := range codes {
		infos[i] = CodeInfo{
			Code:        int(c),
			Name:        taxonomy.Name(c),
			Description: taxonomy.Description(c),
		}
	}
	return infos
}

func outputCodes(formatter *OutputFormatter, infos []CodeInfo) error {
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%3d  %-34s %s\n", info.Code, info.Name, info.Description)
	}
	return nil
}
