package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   *GameSettings  `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address    string `hcl:"address,optional"`
	Port       int    `hcl:"port,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	LogFile    string `hcl:"log_file,optional"`
	ArchiveDir string `hcl:"archive_dir,optional"`
}

// GameSettings defines the defaults applied to every new room
type GameSettings struct {
	HandSize     int  `hcl:"hand_size,optional"`
	CylinderSize int  `hcl:"cylinder_size,optional"`
	MinPlayers   int  `hcl:"min_players,optional"`
	Shotgun      bool `hcl:"shotgun,optional"`
	TwistHand    bool `hcl:"twist_hand,optional"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: &GameSettings{
			HandSize:     7,
			CylinderSize: 6,
			MinPlayers:   2,
			Shotgun:      true,
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game == nil {
		config.Game = DefaultConfig().Game
	}
	if config.Game.HandSize == 0 {
		config.Game.HandSize = 7
	}
	if config.Game.CylinderSize == 0 {
		config.Game.CylinderSize = 6
	}
	if config.Game.MinPlayers == 0 {
		config.Game.MinPlayers = 2
	}

	return &config, nil
}

// Addr returns the listen address in host:port form
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
