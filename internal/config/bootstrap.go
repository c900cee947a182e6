package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/agentfirst-data/afpsql/internal/xdg"
)

// bootstrapPath resolves the default bootstrap configuration file location
// when --config is not given explicitly, mirroring the teacher's
// internal/config.Load layout (XDG config dir, config.json).
func bootstrapPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadBootstrap reads the initial Runtime snapshot from path. An empty path
// resolves to the XDG default location; a missing file at either location
// yields Default() rather than an error, since a bootstrap file is optional.
func LoadBootstrap(path string) (Runtime, error) {
	if path == "" {
		p, err := bootstrapPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Runtime{}, err
	}

	rt := Default()
	if err := json.Unmarshal(data, &rt); err != nil {
		return Runtime{}, err
	}
	if rt.Sessions == nil {
		rt.Sessions = map[string]SessionSpec{}
	}
	if _, ok := rt.Sessions[rt.DefaultSession]; !ok {
		rt.Sessions[rt.DefaultSession] = SessionSpec{}
	}
	return rt, nil
}
