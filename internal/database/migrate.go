package database

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// RunMigrations executes all .sql files in dir in lexicographic order.
func RunMigrations(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(dir, name)
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = DB.Exec(string(body))
		if err != nil {
			log.Error().Err(err).Str("migration", name).Msg("migration failed")
			return err
		}
		log.Info().Str("migration", name).Msg("migration applied")
	}
	return nil
}
