// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk configuration for the chat client, read
// from ~/.config/maru/chat.yaml (or the path given via --config).
// Every field has a working default; the file is optional.
type fileConfig struct {
	// APIURL is the base URL of the Maru chat backend.
	APIURL string `yaml:"api_url"`

	// SupportID is the account ID of the always-pinned support
	// channel. Deployments with a dedicated support desk per region
	// override this.
	SupportID string `yaml:"support_id"`

	// DownloadDir is where confirmed attachment downloads are saved.
	DownloadDir string `yaml:"download_dir"`
}

// defaultConfig returns the built-in configuration used when no file
// exists.
func defaultConfig() fileConfig {
	return fileConfig{
		APIURL:      "https://api.maru.shop",
		SupportID:   "AD00012",
		DownloadDir: ".",
	}
}

// configDirectory returns the directory holding the chat config,
// session file, and directory snapshot. Honors XDG_CONFIG_HOME.
func configDirectory() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("/tmp", "maru")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "maru")
}

// loadConfig reads the config file at path, layering it over the
// built-in defaults. A missing file is not an error unless the path
// was given explicitly.
func loadConfig(path string, explicit bool) (fileConfig, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return config, nil
		}
		return config, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if config.APIURL == "" {
		config.APIURL = defaultConfig().APIURL
	}
	if config.SupportID == "" {
		config.SupportID = defaultConfig().SupportID
	}
	if config.DownloadDir == "" {
		config.DownloadDir = defaultConfig().DownloadDir
	}
	return config, nil
}
