package generator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/console"
)

// Generator renders report databases with one template.
type Generator struct {
	Config  Config
	Channel build.Channel
	Dialer  com.Dialer
	Prop    com.Property
	Console *console.Logger
}

// OutputDir is where the output for dbFile is written.
func (g *Generator) OutputDir(dbFile string) string {
	return filepath.Join(filepath.Dir(dbFile), g.Config.Name)
}

// SettingsFile is the persisted settings file used for dbFile.
func (g *Generator) SettingsFile(dbFile string) string {
	return filepath.Join(filepath.Dir(dbFile), g.Config.Name+".xml")
}

// Generate renders every database in one automation session. A failing
// database is reported and the remaining ones are still rendered; the result
// is false if any of them failed.
func (g *Generator) Generate(ctx context.Context, dbFiles []string) (bool, error) {
	log := g.Console
	template := g.Config.Name
	params := g.Config.Params()

	return build.Call(ctx, g.Channel, func(ctx context.Context) (bool, error) {
		client, err := g.Dialer.Dial(ctx, g.Prop, 0)
		if err != nil {
			log.ComException(err)
			return false, nil
		}
		defer client.Close()
		env, err := client.TestEnvironment()
		if err != nil {
			log.ComException(err)
			return false, nil
		}

		log.Info("- Generating %s test reports...", template)
		generated := true
		for _, dbFile := range dbFiles {
			if err := ctx.Err(); err != nil {
				return false, context.Cause(ctx)
			}
			log.Info("-> Generating %s report: %s", template, dbFile)
			outDir := g.OutputDir(dbFile)

			var ok bool
			if g.Config.UsePersistedSettings {
				settings := g.SettingsFile(dbFile)
				if _, err := os.Stat(settings); err != nil {
					log.Error("Generating %s report failed! Missing persisted settings: %s", template, settings)
					generated = false
					continue
				}
				ok, err = env.GenerateTestReportDocument(dbFile, outDir, settings, true)
			} else {
				ok, err = env.GenerateTestReportDocumentFromDB(dbFile, outDir, template, true, params)
			}
			if err != nil {
				log.ComException(err)
				return false, nil
			}
			if !ok {
				generated = false
				log.Error("Generating %s report failed!", template)
			}
		}
		return generated, nil
	})
}
