package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// envVar is one KEY=value line of a .env file.
type envVar struct {
	key, value string
}

// LoadDotenv sets the variables of the .env file at path that are not
// already in the environment. A missing file is not an error.
func LoadDotenv(path string) error {
	return applyDotenv(path, false)
}

// ReloadDotenv is LoadDotenv overriding existing variables; used on reload.
func ReloadDotenv(path string) error {
	return applyDotenv(path, true)
}

func applyDotenv(path string, override bool) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	vars, err := parseDotenv(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, v := range vars {
		if _, exists := os.LookupEnv(v.key); exists && !override {
			continue
		}
		if err := os.Setenv(v.key, v.value); err != nil {
			return fmt.Errorf("set %s: %w", v.key, err)
		}
	}
	return nil
}

// parseDotenv reads KEY=value lines. Blank lines and # comments are skipped,
// an optional "export " prefix is dropped, quoted values keep their content
// verbatim and unquoted values end at " #".
func parseDotenv(r io.Reader) ([]envVar, error) {
	var vars []envVar
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("line %d: expected KEY=value", n)
		}
		vars = append(vars, envVar{key: key, value: dotenvValue(strings.TrimSpace(value))})
	}
	return vars, scanner.Err()
}

func dotenvValue(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		if end := strings.IndexByte(s[1:], s[0]); end >= 0 {
			return s[1 : end+1]
		}
	}
	if i := strings.Index(s, " #"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
