package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"inventory/config"
	"inventory/logger"
	"inventory/models"

	"github.com/google/uuid"
)

var (
	ErrNoFile            = errors.New("no file uploaded")
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrUnsafeURL         = errors.New("URL points to a disallowed network address")
	ErrFetchFailed       = errors.New("failed to download file")
	ErrInvalidUploadKind = errors.New("invalid upload type")
	ErrFileNotFound      = errors.New("file not found")
)

// UploadKind selects the directory a file belongs to.
type UploadKind string

const (
	KindImage     UploadKind = "image"
	KindDatasheet UploadKind = "datasheet"
	KindThumbnail UploadKind = "thumbnail"
)

// ParseUploadKind accepts both the singular API names and the plural
// directory names used in /uploads URLs.
func ParseUploadKind(s string) (UploadKind, error) {
	switch strings.ToLower(s) {
	case "image", "images":
		return KindImage, nil
	case "datasheet", "datasheets":
		return KindDatasheet, nil
	case "thumbnail", "thumbnails":
		return KindThumbnail, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUploadKind, s)
}

var defaultExtensions = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// Uploader stores user files below the configured upload directories.
type Uploader struct {
	cfg     config.UploadConfig
	fetcher *Fetcher
	now     func() time.Time
}

func NewUploader(cfg config.UploadConfig) *Uploader {
	return &Uploader{
		cfg:     cfg,
		fetcher: NewFetcher(cfg.FetchTimeout, cfg.AllowPrivateNetworks),
		now:     time.Now,
	}
}

// Dir returns the directory holding files of the given kind.
func (u *Uploader) Dir(kind UploadKind) (string, error) {
	switch kind {
	case KindImage:
		return u.cfg.ImagesDir, nil
	case KindDatasheet:
		return u.cfg.DatasheetsDir, nil
	case KindThumbnail:
		return u.cfg.ThumbnailsDir, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUploadKind, kind)
}

// Path resolves a client supplied filename inside the kind's directory.
// Only the base name is used, so "../" sequences cannot escape it.
func (u *Uploader) Path(kind UploadKind, filename string) (string, error) {
	dir, err := u.Dir(kind)
	if err != nil {
		return "", err
	}
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." || base == ".." {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, filename)
	}
	return filepath.Join(dir, base), nil
}

// uniqueFilename is base36 nanoseconds, an underscore, eight random hex
// characters and the extension.
func (u *Uploader) uniqueFilename(ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(u.now().UnixNano(), 36) + "_" + random + ext
}

func mediaType(fh *multipart.FileHeader) string {
	mt, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

func extensionFor(original, mediaType string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if ext == "" || ext == "." {
		return defaultExtensions[mediaType]
	}
	return ext
}

// SaveImage validates and stores an uploaded image and derives its thumbnail.
// A thumbnail that cannot be generated is replaced by a copy of the original.
func (u *Uploader) SaveImage(fh *multipart.FileHeader) (string, error) {
	filename, err := u.saveMultipart(fh, u.cfg.AllowedImageTypes, u.cfg.ImagesDir)
	if err != nil {
		return "", err
	}
	u.makeThumbnail(filename)
	return filename, nil
}

// SaveDatasheet validates and stores an uploaded document.
func (u *Uploader) SaveDatasheet(fh *multipart.FileHeader) (string, error) {
	return u.saveMultipart(fh, u.cfg.AllowedDatasheetTypes, u.cfg.DatasheetsDir)
}

func (u *Uploader) saveMultipart(fh *multipart.FileHeader, allowed []string, dir string) (string, error) {
	if fh == nil {
		return "", ErrNoFile
	}
	mt := mediaType(fh)
	if !slices.Contains(allowed, mt) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileType, mt)
	}
	if fh.Size > u.cfg.MaxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, fh.Size, u.cfg.MaxSize)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	filename := u.uniqueFilename(extensionFor(fh.Filename, mt))
	if err := u.writeFile(filepath.Join(dir, filename), src); err != nil {
		return "", err
	}
	logger.Info("Stored upload %s (%s, %d bytes)", filename, mt, fh.Size)
	return filename, nil
}

// writeFile streams r into a new file at path, enforcing the size ceiling.
// Nothing is left behind on failure.
func (u *Uploader) writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	n, err := io.Copy(dst, io.LimitReader(r, u.cfg.MaxSize+1))
	closeErr := dst.Close()
	if err == nil && n > u.cfg.MaxSize {
		err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, u.cfg.MaxSize)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrFetchFailed) {
			return err
		}
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (u *Uploader) makeThumbnail(filename string) {
	src := filepath.Join(u.cfg.ImagesDir, filename)
	dst := filepath.Join(u.cfg.ThumbnailsDir, filename)
	if err := WriteThumbnail(src, dst, u.cfg.ThumbnailWidth, u.cfg.ThumbnailHeight); err != nil {
		logger.Warn("Thumbnail for %s failed, using original: %v", filename, err)
		if err := copyFile(src, dst); err != nil {
			logger.Error("Copying %s as thumbnail: %v", filename, err)
		}
	}
}

// Delete removes a stored file. Deleting an image also removes its thumbnail.
func (u *Uploader) Delete(kind UploadKind, filename string) error {
	if kind == KindThumbnail {
		return fmt.Errorf("%w: %q", ErrInvalidUploadKind, kind)
	}
	path, err := u.Path(kind, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, filepath.Base(path))
		}
		return fmt.Errorf("deleting %s: %w", filepath.Base(path), err)
	}
	if kind == KindImage {
		thumb, _ := u.Path(KindThumbnail, filename)
		if err := os.Remove(thumb); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Deleting thumbnail %s: %v", filepath.Base(thumb), err)
		}
	}
	logger.Info("Deleted %s %s", kind, filepath.Base(path))
	return nil
}

// FileReferences reports whether any stored item still points at a file.
type FileReferences interface {
	ImageReferenced(ctx context.Context, name string) (bool, error)
	DatasheetReferenced(ctx context.Context, name string) (bool, error)
}

// RemoveItemFiles deletes the image and stored attachments of an item that
// no other item references. Call it after the item change is committed. It
// is best-effort: failures are logged, never returned.
func (u *Uploader) RemoveItemFiles(ctx context.Context, refs FileReferences, item models.Item) {
	remove := func(kind UploadKind, name string) {
		referenced := refs.DatasheetReferenced
		if kind == KindImage {
			referenced = refs.ImageReferenced
		}
		inUse, err := referenced(ctx, name)
		if err != nil {
			logger.Warn("Keeping %s %s of item %d, reference check failed: %v", kind, name, item.ID, err)
			return
		}
		if inUse {
			logger.Debug("Keeping %s %s of item %d, still referenced", kind, name, item.ID)
			return
		}
		if err := u.Delete(kind, name); err != nil && !errors.Is(err, ErrFileNotFound) {
			logger.Warn("Cleaning up %s %s of item %d: %v", kind, name, item.ID, err)
		}
	}
	if item.Image != nil && *item.Image != "" {
		remove(KindImage, *item.Image)
	}
	for _, a := range []models.Attachment{item.Datasheet, item.AuxFile} {
		if name, ok := a.StoredFile(); ok {
			remove(KindDatasheet, name)
		}
	}
}

// RemoveReplacedFiles deletes stored files that an update dropped from an
// item. Best-effort like RemoveItemFiles.
func (u *Uploader) RemoveReplacedFiles(ctx context.Context, refs FileReferences, previous, updated models.Item) {
	stale := models.Item{ID: previous.ID}
	if previous.Image != nil && (updated.Image == nil || *updated.Image != *previous.Image) {
		stale.Image = previous.Image
	}
	kept := map[string]bool{}
	for _, a := range []models.Attachment{updated.Datasheet, updated.AuxFile} {
		if name, ok := a.StoredFile(); ok {
			kept[name] = true
		}
	}
	if name, ok := previous.Datasheet.StoredFile(); ok && !kept[name] {
		stale.Datasheet = previous.Datasheet
	}
	if name, ok := previous.AuxFile.StoredFile(); ok && !kept[name] {
		stale.AuxFile = previous.AuxFile
	}
	u.RemoveItemFiles(ctx, refs, stale)
}

// RegenerateReport summarizes a RegenerateThumbnails run.
type RegenerateReport struct {
	Generated int
	Copied    int
	Failed    int
}

// RegenerateThumbnails rebuilds the thumbnail of every file in the images
// directory, e.g. after the thumbnail size was changed.
func (u *Uploader) RegenerateThumbnails() (RegenerateReport, error) {
	var report RegenerateReport
	entries, err := os.ReadDir(u.cfg.ImagesDir)
	if err != nil {
		return report, fmt.Errorf("reading images directory: %w", err)
	}
	if err := os.MkdirAll(u.cfg.ThumbnailsDir, 0750); err != nil {
		return report, fmt.Errorf("creating thumbnails directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		src := filepath.Join(u.cfg.ImagesDir, e.Name())
		dst := filepath.Join(u.cfg.ThumbnailsDir, e.Name())
		if err := WriteThumbnail(src, dst, u.cfg.ThumbnailWidth, u.cfg.ThumbnailHeight); err != nil {
			logger.Warn("Thumbnail for %s failed, using original: %v", e.Name(), err)
			if err := copyFile(src, dst); err != nil {
				logger.Error("Copying %s as thumbnail: %v", e.Name(), err)
				report.Failed++
				continue
			}
			report.Copied++
			continue
		}
		report.Generated++
	}
	return report, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
