package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"al-ilm/companion/internal/db"
	dbmigrate "al-ilm/companion/internal/db/migrate"
	userdomain "al-ilm/companion/internal/user/domain"
)

// Options configures the SQLite credential store.
type Options struct {
	// Seal enables at-rest encryption of values.
	Seal bool
}

// SQLiteStore implements Store over the local SQLite credential database.
type SQLiteStore struct {
	db     *sql.DB
	sealer *sealer // nil when sealing is disabled
}

// Open migrates and opens the credential database at dbPath. The seal salt,
// when enabled, lives beside the database as ".seal".
func Open(dbPath string, opts Options) (*SQLiteStore, error) {
	if err := dbmigrate.Run(dbPath, "up"); err != nil {
		return nil, err
	}
	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: conn}
	if opts.Seal {
		sl, err := newSealer(filepath.Join(filepath.Dir(dbPath), ".seal"))
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		s.sealer = sl
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key, or "" when absent or on storage failure.
func (s *SQLiteStore) Get(ctx context.Context, key Key) string {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, string(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		log.Printf("credstore: read %s failed: %v", key, err)
		return ""
	}
	if s.sealer != nil {
		plain, err := s.sealer.open(key, value)
		if err != nil {
			log.Printf("credstore: unseal %s failed: %v", key, err)
			return ""
		}
		return plain
	}
	return value
}

// Set stores value under key. Failures are logged and dropped.
func (s *SQLiteStore) Set(ctx context.Context, key Key, value string) {
	if s.sealer != nil {
		sealed, err := s.sealer.seal(key, value)
		if err != nil {
			log.Printf("credstore: seal %s failed: %v", key, err)
			return
		}
		value = sealed
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(key), value, time.Now().Unix())
	if err != nil {
		log.Printf("credstore: write %s failed: %v", key, err)
	}
}

// RemoveMany deletes the given keys in one statement. Missing keys are a no-op.
func (s *SQLiteStore) RemoveMany(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = string(k)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		log.Printf("credstore: remove failed: %v", err)
	}
}

// GetAuthData reads every slot concurrently and returns a structured snapshot.
// Unparseable user or role payloads degrade to absent, same as a read failure.
func (s *SQLiteStore) GetAuthData(ctx context.Context) AuthData {
	values := make(map[Key]string, len(allKeys))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, key := range allKeys {
		wg.Add(1)
		go func(k Key) {
			defer wg.Done()
			v := s.Get(ctx, k)
			mu.Lock()
			values[k] = v
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	data := AuthData{
		Token:        values[KeyToken],
		RefreshToken: values[KeyRefreshToken],
		AutoLogin:    values[KeyAutoLogin] == "true",
		DeviceID:     values[KeyDeviceID],
	}
	if raw := values[KeyUser]; raw != "" {
		var u userdomain.UserProfile
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			log.Printf("credstore: stored user unparseable: %v", err)
		} else {
			data.User = &u
		}
	}
	if raw := values[KeyRole]; raw != "" {
		var role string
		if err := json.Unmarshal([]byte(raw), &role); err != nil {
			log.Printf("credstore: stored role unparseable: %v", err)
		} else {
			data.Role = userdomain.Role(role)
		}
	}
	return data
}

// SetAuthData writes only the provided fields, concurrently.
func (s *SQLiteStore) SetAuthData(ctx context.Context, u Update) {
	type op struct {
		key   Key
		value string
	}
	var ops []op
	if u.Token != nil {
		ops = append(ops, op{KeyToken, *u.Token})
	}
	if u.User != nil {
		raw, err := json.Marshal(u.User)
		if err != nil {
			log.Printf("credstore: encode user failed: %v", err)
		} else {
			ops = append(ops, op{KeyUser, string(raw)})
		}
	}
	if u.Role != nil {
		raw, _ := json.Marshal(string(*u.Role))
		ops = append(ops, op{KeyRole, string(raw)})
	}
	if u.RefreshToken != nil {
		ops = append(ops, op{KeyRefreshToken, *u.RefreshToken})
	}
	if u.AutoLogin != nil {
		ops = append(ops, op{KeyAutoLogin, strconv.FormatBool(*u.AutoLogin)})
	}
	if u.DeviceID != nil {
		ops = append(ops, op{KeyDeviceID, *u.DeviceID})
	}

	var wg sync.WaitGroup
	for _, o := range ops {
		wg.Add(1)
		go func(o op) {
			defer wg.Done()
			s.Set(ctx, o.key, o.value)
		}(o)
	}
	wg.Wait()
}

// ClearAuthData removes the token, user, refresh token, and auto-login slots.
func (s *SQLiteStore) ClearAuthData(ctx context.Context) {
	s.RemoveMany(ctx, authKeys...)
}

// ClearAllData additionally removes the role and device id slots.
func (s *SQLiteStore) ClearAllData(ctx context.Context) {
	s.RemoveMany(ctx, allKeys...)
}
