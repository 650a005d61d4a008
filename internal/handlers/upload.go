package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"media-converter/internal/filesystem"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
)

const (
	fileField = "file"
	// maxFieldBytes caps a single non-file form value.
	maxFieldBytes = 4096
	sniffBytes    = 3072
)

// upload is a multipart request whose file part has been saved to disk.
type upload struct {
	Path     string
	Filename string
	Size     int64
	MIME     string
	Fields   url.Values
}

// receiveUpload streams the multipart body of r into scope. The file part
// is sniffed before it touches disk and must be one of kinds.
func (h *Handlers) receiveUpload(w http.ResponseWriter, r *http.Request, scope *filesystem.Scope, kinds ...mediatypes.Kind) (*upload, error) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("invalid_form", "expected a multipart/form-data body")
	}

	up := &upload{Fields: url.Values{}}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, h.classifyBodyError(err)
		}

		if part.FileName() == "" {
			value, err := readField(part)
			part.Close()
			if err != nil {
				return nil, h.classifyBodyError(err)
			}
			up.Fields.Add(part.FormName(), value)
			continue
		}

		if part.FormName() != fileField || up.Path != "" {
			_, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return nil, h.classifyBodyError(err)
			}
			continue
		}

		err = h.saveFile(part, scope, up, kinds)
		part.Close()
		if err != nil {
			return nil, err
		}
	}

	if up.Path == "" {
		return nil, badRequest("invalid_form", `missing upload: form field key should be "file"`)
	}
	metrics.UploadBytes.WithLabelValues(up.kindLabel()).Observe(float64(up.Size))
	return up, nil
}

func (h *Handlers) saveFile(part *multipart.Part, scope *filesystem.Scope, up *upload, kinds []mediatypes.Kind) error {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(part, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return h.classifyBodyError(err)
	}
	head = head[:n]
	if n == 0 {
		return badRequest("invalid_form", "uploaded file is empty")
	}

	detected := mimetype.Detect(head)
	if !matchesKind(detected, kinds) {
		return &requestError{
			status:  http.StatusUnsupportedMediaType,
			message: fmt.Sprintf("unsupported file type: %s", detected.String()),
			reason:  "wrong_type",
		}
	}

	ext := mediatypes.Extension(part.FileName())
	if ext == "" {
		ext = strings.TrimPrefix(detected.Extension(), ".")
	}

	path, size, err := scope.Save(io.MultiReader(bytes.NewReader(head), part), ext)
	if err != nil {
		return h.classifyBodyError(err)
	}

	up.Path = path
	up.Filename = part.FileName()
	up.Size = size
	up.MIME = detected.String()
	return nil
}

// classifyBodyError separates an oversized body from other read failures.
func (h *Handlers) classifyBodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{
			status:  http.StatusRequestEntityTooLarge,
			message: fmt.Sprintf("upload exceeds the %d MB limit", h.maxUpload>>20),
			reason:  "too_large",
		}
	}
	return badRequest("invalid_form", "could not read upload: "+err.Error())
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxFieldBytes {
		return "", fmt.Errorf("form field %q is too long", part.FormName())
	}
	return strings.TrimSpace(string(b)), nil
}

// matchesKind walks the detected type and its parents.
func matchesKind(m *mimetype.MIME, kinds []mediatypes.Kind) bool {
	for ; m != nil; m = m.Parent() {
		for _, kind := range kinds {
			if strings.HasPrefix(m.String(), string(kind)+"/") {
				return true
			}
		}
	}
	return false
}

func (u *upload) kindLabel() string {
	switch {
	case strings.HasPrefix(u.MIME, "image/"):
		return string(mediatypes.KindImage)
	case strings.HasPrefix(u.MIME, "video/"):
		return string(mediatypes.KindVideo)
	default:
		return "other"
	}
}

// formInt parses an optional integer field.
func (u *upload) formInt(name string, def int) (int, error) {
	raw := u.Fields.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid_form", fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

// formFloat parses an optional float field.
func (u *upload) formFloat(name string) (float64, error) {
	raw := u.Fields.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, badRequest("invalid_form", fmt.Sprintf("%s must be a number", name))
	}
	return v, nil
}
