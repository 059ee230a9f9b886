package syncer

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Prefs are the client-local toggles persisted between launches. Each is
// written independently of the session: logging out keeps them.
type Prefs struct {
	SoundEnabled bool `yaml:"sound_enabled"`
	KeepAwake    bool `yaml:"keep_awake"`
}

// LoadPrefs reads preferences from the given path. A missing file yields
// the defaults (sound on, keep-awake off) without error.
func LoadPrefs(path string) (*Prefs, error) {
	prefs := &Prefs{SoundEnabled: true}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return prefs, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// Save writes the preferences to the given path.
func (p *Prefs) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
