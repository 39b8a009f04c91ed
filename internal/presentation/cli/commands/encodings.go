package commands

import (
	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/presentation/cli/output"
)

// EncodingListItem is one row of the encodings listing.
type EncodingListItem struct {
	Name        encoding.ID `json:"name"`
	Description string      `json:"description"`
	Default     bool        `json:"default"`
}

// NewEncodingsCmd creates the encodings command.
func NewEncodingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "encodings",
		Aliases: []string{"enc"},
		Short:   "List the supported encodings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp()
			if err != nil {
				return err
			}
			return printEncodings(app.Formatter, app.Config.DefaultEncoding())
		},
	}
}

func encodingList(def encoding.ID) []EncodingListItem {
	items := make([]EncodingListItem, 0, len(encoding.Supported()))
	for _, id := range encoding.Supported() {
		items = append(items, EncodingListItem{
			Name:        id,
			Description: id.Description(),
			Default:     id == def,
		})
	}
	return items
}

func printEncodings(f *output.Formatter, def encoding.ID) error {
	items := encodingList(def)
	if f.Format() == output.FormatJSON {
		return f.JSON(items)
	}

	table := output.TableData{
		Columns: []output.TableColumn{
			{Header: "ENCODING"},
			{Header: "DESCRIPTION"},
			{Header: "DEFAULT", Align: output.AlignCenter},
		},
	}
	for _, it := range items {
		mark := ""
		if it.Default {
			mark = "*"
		}
		table.Rows = append(table.Rows, []string{it.Name.String(), it.Description, mark})
	}
	return f.Table(table)
}
