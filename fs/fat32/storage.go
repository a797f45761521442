package fat32

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/valeos/vfs/data"
)

// Read copies file content starting at offset into buf. Reads past the end
// of file return a short (possibly zero) count without error.
func (f *FileSystem) Read(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, dir, err := f.content(ctx, pathKey(p))
	if err != nil {
		return 0, err
	}
	if dir {
		return 0, data.ErrIsDirectory
	}

	if offset >= uint64(len(content)) {
		return 0, nil
	}

	n := copy(buf, content[offset:])

	f.touchAccessed(ctx, pathKey(p))
	return n, nil
}

// Write stores buf at offset, growing the file as needed.
func (f *FileSystem) Write(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.storeRange(ctx, pathKey(p), buf, offset)
}

// Clear zero-fills count bytes starting at offset.
func (f *FileSystem) Clear(ctx context.Context, p data.Path, count, offset uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.storeRange(ctx, pathKey(p), make([]byte, count), offset)
}

// Truncate extends or shrinks the file to size bytes. Extension zero-fills.
func (f *FileSystem) Truncate(ctx context.Context, p data.Path, size uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := pathKey(p)

	content, dir, err := f.content(ctx, key)
	if err != nil {
		return err
	}
	if dir {
		return data.ErrIsDirectory
	}

	if size == uint64(len(content)) {
		return nil
	}

	resized := make([]byte, size)
	copy(resized, content)

	return f.storeContent(ctx, key, resized)
}

// ReadDir lists the direct children of the directory at p, ordered by name.
func (f *FileSystem) ReadDir(ctx context.Context, p data.Path) ([]data.FileMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	key := pathKey(p)

	self, err := f.getFile(ctx, key)
	if err != nil {
		return nil, err
	}
	if !self.Directory {
		return nil, data.ErrNotDirectory
	}

	prefix := key
	if prefix != "" {
		prefix += "/"
	}

	rows, err := f.db.QueryContext(ctx, `
		SELECT name, dir, system, hidden, size, created, modified, accessed
		FROM fat32_files
		WHERE path LIKE ? AND path NOT LIKE ? AND path != ''
		ORDER BY name
	`, prefix+"%", prefix+"%/%")
	if err != nil {
		return nil, data.ErrIO
	}
	defer rows.Close()

	var files []data.FileMetadata
	for rows.Next() {
		var meta data.FileMetadata
		var dir, system, hidden int
		if err := rows.Scan(&meta.Name, &dir, &system, &hidden, &meta.Size,
			&meta.Created, &meta.Modified, &meta.Accessed); err != nil {
			return nil, data.ErrIO
		}

		meta.Directory = dir != 0
		meta.System = system != 0
		meta.Hidden = hidden != 0
		files = append(files, meta)
	}
	if rows.Err() != nil {
		return nil, data.ErrIO
	}

	return files, nil
}

// content loads the blob and directory flag for key.
func (f *FileSystem) content(ctx context.Context, key string) ([]byte, bool, error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT dir, data FROM fat32_files WHERE path = ?
	`, key)

	var dir int
	var content []byte
	err := row.Scan(&dir, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, data.ErrNotExists
	}
	if err != nil {
		return nil, false, data.ErrIO
	}

	return content, dir != 0, nil
}

// storeRange writes buf into the file at key starting at offset, growing
// the content as needed, and stamps the modification time.
func (f *FileSystem) storeRange(ctx context.Context, key string, buf []byte, offset uint64) (int, error) {
	content, dir, err := f.content(ctx, key)
	if err != nil {
		return 0, err
	}
	if dir {
		return 0, data.ErrIsDirectory
	}

	end := offset + uint64(len(buf))
	if end > uint64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	copy(content[offset:], buf)

	if err := f.storeContent(ctx, key, content); err != nil {
		return 0, err
	}

	return len(buf), nil
}

func (f *FileSystem) storeContent(ctx context.Context, key string, content []byte) error {
	_, err := f.db.ExecContext(ctx, `
		UPDATE fat32_files SET data = ?, size = ?, modified = ? WHERE path = ?
	`, content, len(content), time.Now().Unix(), key)
	if err != nil {
		return data.ErrIO
	}
	return nil
}

func (f *FileSystem) touchAccessed(ctx context.Context, key string) {
	f.db.ExecContext(ctx, `
		UPDATE fat32_files SET accessed = ? WHERE path = ?
	`, time.Now().Unix(), key)
}
