package cmd

import (
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/atx"
)

var (
	flagATXGroup   string
	flagATXLang    string
	flagATXChanged bool
)

var atxCmd = &cobra.Command{
	Use:   "atx",
	Short: "Inspect the ATX report generator settings",
}

var atxSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "List the ATX settings with the [atx] overrides applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagATXLang != "de" && flagATXLang != "en" {
			return fmt.Errorf("unsupported language %q, expected de or en", flagATXLang)
		}
		ctx := GetContext()
		proj, err := openProject(ctx)
		if err != nil {
			return err
		}
		defer proj.Close()

		cfg, err := proj.Config.ATXConfig()
		if err != nil {
			return err
		}
		settings := cfg.Settings()
		if flagATXChanged {
			settings = cfg.Changed()
		}
		if flagATXGroup != "" {
			g, err := atx.ParseGroup(flagATXGroup)
			if err != nil {
				return err
			}
			settings = slices.DeleteFunc(slices.Clone(settings), func(s atx.Setting) bool {
				return s.Group() != g
			})
		}

		t := newTable("GROUP", "SETTING", "VALUE", "DESCRIPTION")
		for _, s := range settings {
			value := s.String()
			if secret, ok := s.(*atx.SecretSetting); ok {
				value = secret.Masked()
			}
			t.AppendRow(table.Row{s.Group(), s.Name(), cell(value), wordwrap.String(s.Description(flagATXLang), 60)})
		}
		t.Render()
		return nil
	},
}

func init() {
	atxSettingsCmd.Flags().StringVarP(&flagATXGroup, "group", "g", "", "settings group such as uploadConfig")
	atxSettingsCmd.Flags().StringVar(&flagATXLang, "lang", "en", "description language: de or en")
	atxSettingsCmd.Flags().BoolVar(&flagATXChanged, "changed", false, "only list settings differing from the defaults")
	atxCmd.AddCommand(atxSettingsCmd)
}
