// Package raster converts rendered HTML fragments into bitmaps (and tabular
// fragments into PDFs) through a temporary on-disk surface.
package raster

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Spok95/school-office/internal/render"
	"github.com/spf13/afero"
)

// Surface: временный каталог с HTML фрагментов. Живёт только внутри WithSurface.
// HTMLPaths[i] соответствует Fragments[i].
type Surface struct {
	Fs        afero.Fs
	Dir       string
	HTMLPaths []string
	Fragments []render.Fragment
}

// Path: путь для дополнительных файлов на поверхности.
func (s *Surface) Path(name string) string { return filepath.Join(s.Dir, name) }

// WithSurface создаёт поверхность, вызывает fn и удаляет каталог на любом выходе:
// успех, ошибка, паника, отмена контекста.
func WithSurface(ctx context.Context, fs afero.Fs, frags []render.Fragment, fn func(*Surface) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(frags) == 0 {
		return fmt.Errorf("surface: no fragments")
	}
	dir, err := afero.TempDir(fs, "", "docsurface-")
	if err != nil {
		return err
	}
	defer func() { _ = fs.RemoveAll(dir) }()

	s := &Surface{Fs: fs, Dir: dir, Fragments: frags}
	for i, f := range frags {
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.html", i))
		if err := afero.WriteFile(fs, path, f.HTML, 0o600); err != nil {
			return err
		}
		s.HTMLPaths = append(s.HTMLPaths, path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}
