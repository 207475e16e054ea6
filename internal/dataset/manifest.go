// Package dataset builds the locations source table from IBGE municipal
// population estimates: download the workbook over FTP, parse the sheet,
// compute the population percentages, overlay postal data, and write the
// JSON the location sampler loads.
package dataset

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest is the top-level dataset build configuration.
type Manifest struct {
	Source  SourceConfig `yaml:"source"`
	Sheet   SheetConfig  `yaml:"sheet"`
	Overlay string       `yaml:"overlay,omitempty"`
	Output  string       `yaml:"output"`
}

// SourceConfig names the workbook to build from. Exactly one of FTPURL or
// Path must be set; Path points at an already-downloaded file.
type SourceConfig struct {
	FTPURL      string `yaml:"ftp_url,omitempty"`
	Path        string `yaml:"path,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// Timeout returns the FTP timeout as a duration.
func (s SourceConfig) Timeout() time.Duration {
	if s.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSecs) * time.Second
}

// SheetConfig locates the estimate rows inside the workbook. The column
// defaults match the IBGE estimativa layout (UF, state code, municipality
// code, municipality name, estimated population).
type SheetConfig struct {
	Index         int    `yaml:"index"`
	Name          string `yaml:"name,omitempty"`
	SkipRows      int    `yaml:"skip_rows"`
	UFCol         int    `yaml:"uf_col"`
	NameCol       int    `yaml:"name_col"`
	PopulationCol int    `yaml:"population_col"`
}

// LoadManifest reads a dataset build manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read manifest %s", path)
	}

	m := &Manifest{
		Sheet: SheetConfig{
			SkipRows:      2,
			UFCol:         0,
			NameCol:       3,
			PopulationCol: 4,
		},
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, eris.Wrap(err, "dataset: parse manifest")
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if m.Source.FTPURL == "" && m.Source.Path == "" {
		return eris.New("dataset: manifest needs source.ftp_url or source.path")
	}
	if m.Source.FTPURL != "" && m.Source.Path != "" {
		return eris.New("dataset: source.ftp_url and source.path are mutually exclusive")
	}
	if m.Output == "" {
		return eris.New("dataset: manifest needs an output path")
	}
	return nil
}
