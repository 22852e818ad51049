package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"inventory/config"
	"inventory/models"
)

func testUploadConfig(t *testing.T) config.UploadConfig {
	t.Helper()
	root := t.TempDir()
	return config.UploadConfig{
		ImagesDir:                  filepath.Join(root, "images"),
		ThumbnailsDir:              filepath.Join(root, "thumbnails"),
		DatasheetsDir:              filepath.Join(root, "datasheets"),
		MaxSize:                    64 * 1024,
		ThumbnailWidth:             40,
		ThumbnailHeight:            40,
		AllowedImageTypes:          []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		AllowedDatasheetTypes:      []string{"application/pdf", "application/msword"},
		AllowedDatasheetExtensions: []string{"pdf", "doc", "docx"},
		FetchTimeout:               5 * time.Second,
	}
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	pw, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	pw.Write(content)
	mw.Close()

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

// pngWithTransparentCorner is w×h opaque red with a transparent top-left quarter.
func pngWithTransparentCorner(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if x < w/2 && y < h/2 {
				c = color.NRGBA{}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read dir: %v", err)
	}
	return entries
}

var filenamePattern = regexp.MustCompile(`^[0-9a-z]+_[0-9a-f]{8}\.png$`)

func TestSaveImageWritesFileAndThumbnail(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	name, err := u.SaveImage(fileHeader(t, "photo.PNG", "image/png", pngWithTransparentCorner(t, 200, 100)))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	if !filenamePattern.MatchString(name) {
		t.Fatalf("filename %q does not match %s", name, filenamePattern)
	}
	if _, err := os.Stat(filepath.Join(cfg.ImagesDir, name)); err != nil {
		t.Fatalf("image not stored: %v", err)
	}

	f, err := os.Open(filepath.Join(cfg.ThumbnailsDir, name))
	if err != nil {
		t.Fatalf("thumbnail not stored: %v", err)
	}
	defer f.Close()
	thumb, err := png.Decode(f)
	if err != nil {
		t.Fatalf("thumbnail is not a png: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("thumbnail size = %dx%d, want 40x20", b.Dx(), b.Dy())
	}
	if _, _, _, a := thumb.At(2, 2).RGBA(); a != 0 {
		t.Fatalf("transparent corner became opaque (alpha %d)", a)
	}
	if _, _, _, a := thumb.At(35, 15).RGBA(); a < 0xff00 {
		t.Fatalf("opaque area lost alpha (alpha %d)", a)
	}
}

func TestUniqueFilenamesDiffer(t *testing.T) {
	u := NewUploader(testUploadConfig(t))
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return fixed }
	a, b := u.uniqueFilename(".pdf"), u.uniqueFilename(".pdf")
	if a == b {
		t.Fatalf("two names in the same nanosecond collided: %s", a)
	}
}

func TestSaveRejectsBeforeWriting(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	tests := []struct {
		name string
		save func() (string, error)
		want error
		dir  string
	}{
		{
			name: "image with document type",
			save: func() (string, error) { return u.SaveImage(fileHeader(t, "x.pdf", "application/pdf", []byte("%PDF"))) },
			want: ErrInvalidFileType,
			dir:  cfg.ImagesDir,
		},
		{
			name: "image too large",
			save: func() (string, error) {
				return u.SaveImage(fileHeader(t, "big.png", "image/png", make([]byte, cfg.MaxSize+1)))
			},
			want: ErrFileTooLarge,
			dir:  cfg.ImagesDir,
		},
		{
			name: "datasheet with image type",
			save: func() (string, error) { return u.SaveDatasheet(fileHeader(t, "x.png", "image/png", []byte("x"))) },
			want: ErrInvalidFileType,
			dir:  cfg.DatasheetsDir,
		},
		{
			name: "missing file",
			save: func() (string, error) { return u.SaveDatasheet(nil) },
			want: ErrNoFile,
			dir:  cfg.DatasheetsDir,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.save(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if n := len(dirEntries(t, tt.dir)); n != 0 {
				t.Fatalf("rejected upload left %d files behind", n)
			}
		})
	}
	if n := len(dirEntries(t, cfg.ThumbnailsDir)); n != 0 {
		t.Fatalf("rejected uploads left %d thumbnails", n)
	}
}

func TestCorruptImageFallsBackToCopy(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	content := []byte("definitely not a png")
	name, err := u.SaveImage(fileHeader(t, "broken.png", "image/png", content))
	if err != nil {
		t.Fatalf("corrupt image must still be accepted: %v", err)
	}
	thumb, err := os.ReadFile(filepath.Join(cfg.ThumbnailsDir, name))
	if err != nil {
		t.Fatalf("read thumbnail: %v", err)
	}
	if !bytes.Equal(thumb, content) {
		t.Fatalf("fallback thumbnail should be a verbatim copy")
	}
}

func TestSaveDatasheetKeepsExtension(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	name, err := u.SaveDatasheet(fileHeader(t, "manual.PDF", "application/pdf; charset=binary", []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("save datasheet: %v", err)
	}
	if filepath.Ext(name) != ".pdf" {
		t.Fatalf("extension of %q", name)
	}
	if n := len(dirEntries(t, cfg.ThumbnailsDir)); n != 0 {
		t.Fatalf("datasheets must not get thumbnails")
	}
}

func TestDelete(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	name, err := u.SaveImage(fileHeader(t, "p.png", "image/png", pngWithTransparentCorner(t, 8, 8)))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := u.Delete(KindImage, "../../"+name); err != nil {
		t.Fatalf("delete with traversal prefix should resolve to the base name: %v", err)
	}
	if len(dirEntries(t, cfg.ImagesDir)) != 0 || len(dirEntries(t, cfg.ThumbnailsDir)) != 0 {
		t.Fatalf("image or thumbnail left behind")
	}
	if err := u.Delete(KindImage, name); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("second delete: got %v, want ErrFileNotFound", err)
	}
	if err := u.Delete(KindThumbnail, name); !errors.Is(err, ErrInvalidUploadKind) {
		t.Fatalf("thumbnail delete: got %v, want ErrInvalidUploadKind", err)
	}
	if err := u.Delete(KindDatasheet, ""); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("empty name: got %v, want ErrFileNotFound", err)
	}
}

// fakeReferences marks the listed names as used by some other item.
type fakeReferences struct {
	images, datasheets map[string]bool
	err                error
}

func (f fakeReferences) ImageReferenced(_ context.Context, name string) (bool, error) {
	return f.images[name], f.err
}

func (f fakeReferences) DatasheetReferenced(_ context.Context, name string) (bool, error) {
	return f.datasheets[name], f.err
}

func TestRemoveItemFiles(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	img, _ := u.SaveImage(fileHeader(t, "p.png", "image/png", pngWithTransparentCorner(t, 8, 8)))
	ds, _ := u.SaveDatasheet(fileHeader(t, "d.pdf", "application/pdf", []byte("%PDF")))
	keep, _ := u.SaveDatasheet(fileHeader(t, "k.pdf", "application/pdf", []byte("%PDF")))

	u.RemoveItemFiles(context.Background(), fakeReferences{}, models.Item{
		ID:        1,
		Image:     &img,
		Datasheet: models.Attachment{Type: models.AttachmentFile, Value: ds},
		AuxFile:   models.Attachment{Type: models.AttachmentURL, Value: keep},
	})

	if len(dirEntries(t, cfg.ImagesDir)) != 0 || len(dirEntries(t, cfg.ThumbnailsDir)) != 0 {
		t.Fatalf("image files left behind")
	}
	left := dirEntries(t, cfg.DatasheetsDir)
	if len(left) != 1 || left[0].Name() != keep {
		t.Fatalf("only the URL attachment's namesake should remain, got %v", left)
	}
}

func TestRemoveReplacedFiles(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	oldImg, _ := u.SaveImage(fileHeader(t, "a.png", "image/png", pngWithTransparentCorner(t, 8, 8)))
	newImg, _ := u.SaveImage(fileHeader(t, "b.png", "image/png", pngWithTransparentCorner(t, 8, 8)))
	ds, _ := u.SaveDatasheet(fileHeader(t, "d.pdf", "application/pdf", []byte("%PDF")))
	aux, _ := u.SaveDatasheet(fileHeader(t, "x.pdf", "application/pdf", []byte("%PDF")))

	previous := models.Item{
		ID:        1,
		Image:     &oldImg,
		Datasheet: models.Attachment{Type: models.AttachmentFile, Value: ds},
		AuxFile:   models.Attachment{Type: models.AttachmentFile, Value: aux},
	}
	// the datasheet moved to the aux slot, the old aux file was dropped
	updated := models.Item{
		ID:        1,
		Image:     &newImg,
		Datasheet: models.Attachment{Type: models.AttachmentNone},
		AuxFile:   models.Attachment{Type: models.AttachmentFile, Value: ds},
	}
	u.RemoveReplacedFiles(context.Background(), fakeReferences{}, previous, updated)

	images := dirEntries(t, cfg.ImagesDir)
	if len(images) != 1 || images[0].Name() != newImg {
		t.Fatalf("images = %v, want only %s", images, newImg)
	}
	sheets := dirEntries(t, cfg.DatasheetsDir)
	if len(sheets) != 1 || sheets[0].Name() != ds {
		t.Fatalf("datasheets = %v, want only %s", sheets, ds)
	}
}

func TestRemoveItemFilesKeepsSharedFiles(t *testing.T) {
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	img, _ := u.SaveImage(fileHeader(t, "p.png", "image/png", pngWithTransparentCorner(t, 8, 8)))
	shared, _ := u.SaveDatasheet(fileHeader(t, "s.pdf", "application/pdf", []byte("%PDF")))
	own, _ := u.SaveDatasheet(fileHeader(t, "o.pdf", "application/pdf", []byte("%PDF")))
	item := models.Item{
		ID:        1,
		Image:     &img,
		Datasheet: models.Attachment{Type: models.AttachmentFile, Value: shared},
		AuxFile:   models.Attachment{Type: models.AttachmentFile, Value: own},
	}

	u.RemoveItemFiles(context.Background(), fakeReferences{
		images:     map[string]bool{img: true},
		datasheets: map[string]bool{shared: true},
	}, item)

	if len(dirEntries(t, cfg.ImagesDir)) != 1 || len(dirEntries(t, cfg.ThumbnailsDir)) != 1 {
		t.Fatalf("shared image and its thumbnail must stay")
	}
	left := dirEntries(t, cfg.DatasheetsDir)
	if len(left) != 1 || left[0].Name() != shared {
		t.Fatalf("datasheets = %v, want only %s", left, shared)
	}

	u.RemoveItemFiles(context.Background(), fakeReferences{err: errors.New("db closed")}, item)
	if len(dirEntries(t, cfg.ImagesDir)) != 1 || len(dirEntries(t, cfg.DatasheetsDir)) != 1 {
		t.Fatalf("files must be kept when the reference check fails")
	}
}

func TestParseUploadKind(t *testing.T) {
	for in, want := range map[string]UploadKind{"image": KindImage, "images": KindImage, "datasheets": KindDatasheet, "thumbnails": KindThumbnail} {
		got, err := ParseUploadKind(in)
		if err != nil || got != want {
			t.Errorf("ParseUploadKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseUploadKind("secrets"); !errors.Is(err, ErrInvalidUploadKind) {
		t.Errorf("unknown kind: got %v", err)
	}
}
