package cli

import (
	"io"

	"github.com/perfdash/perfdash/internal/errors"
	"gopkg.in/yaml.v3"
)

// configShowCommand prints the effective config as YAML.
func configShowCommand(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render the config", "")
	}
	return enc.Close()
}
