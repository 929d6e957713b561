package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"ltlmc/store"

	"gopkg.in/yaml.v3"
)

// File is the configuration file read by the command line tool.
type File struct {
	Workers int `yaml:"workers"`
	Table   struct {
		InitialSize int    `yaml:"initial_size"`
		Factor      int    `yaml:"factor"`
		MaxSize     int    `yaml:"max_size"`
		Regions     string `yaml:"regions"`
	} `yaml:"table"`
	Cluster struct {
		Peers []string `yaml:"peers"`
	} `yaml:"cluster"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	// Defaults to true when left out
	Counterexample *bool `yaml:"counterexample"`
}

func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return File{}, fmt.Errorf("config: %w", err)
	}
	if f.Workers < 0 || f.Table.InitialSize < 0 || f.Table.MaxSize < 0 {
		return File{}, fmt.Errorf("config: negative sizes are not allowed")
	}
	if f.Table.Factor == 1 || f.Table.Factor < 0 {
		return File{}, fmt.Errorf("config: growth factor must be at least 2. Got: %d", f.Table.Factor)
	}
	if _, err := f.Regions(); err != nil {
		return File{}, err
	}
	if _, err := f.Level(); err != nil {
		return File{}, err
	}
	return f, nil
}

func Load(path string) (File, error) {
	file, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer file.Close()
	return Parse(file)
}

// Regions resolves the region policy of the table section.
// Accepted values are "sqrt", "constant:<n>" and "linear:<slots>".
// An empty value resolves to nil.
func (f File) Regions() (store.Regions, error) {
	name, arg, _ := strings.Cut(f.Table.Regions, ":")
	switch name {
	case "":
		return nil, nil
	case "sqrt":
		return store.SqrtRegions{}, nil
	case "constant", "linear":
		var n int
		if _, err := fmt.Sscan(arg, &n); err != nil || n <= 0 {
			return nil, fmt.Errorf("config: %s regions need a positive count. Got: %q", name, arg)
		}
		if name == "constant" {
			return store.ConstantRegions(n), nil
		}
		return store.LinearRegions(n), nil
	}
	return nil, fmt.Errorf("config: unknown region policy %q", f.Table.Regions)
}

// Level resolves the log level. An empty value resolves to info.
func (f File) Level() (slog.Level, error) {
	var l slog.Level
	if f.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(f.Log.Level)); err != nil {
		return l, fmt.Errorf("config: %w", err)
	}
	return l, nil
}

func (f File) WantCounterexample() bool {
	return f.Counterexample == nil || *f.Counterexample
}
