package storage

import "github.com/pendergraft/berarelay/internal/config"

func configFor(storeType, sqlitePath string) config.HistoryConfig {
	return config.HistoryConfig{Type: storeType, SQLitePath: sqlitePath}
}
