package calibration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists the two calibration endpoints across restarts.
type Store interface {
	Load() (Calibration, error)
	Save(e Endpoint, raw int) error
}

// Storage layout.
//
// The image mimics a small EEPROM: each endpoint owns three cells
// (marker, quotient, remainder) and value = quotient*Modulus + remainder.
// Erased cells read as 0xFF, so a fresh or truncated image decodes as uninitialized.
const (
	Modulus   = 4
	SensorMax = 1023

	slotSize  = 3
	imageSize = 2 * slotSize

	markerWritten byte = 0xA5
	cellErased    byte = 0xFF
)

var _ Store = (*fileStore)(nil)

// fileStore keeps the image in the single file at path.
type fileStore struct {
	path string
}

// NewFileStore creates a store backed by path (parent directories are created if missing).
func NewFileStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("empty calibration path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{path: path}, nil
}

// Load decodes both endpoints. Endpoints that were never written (or whose cells are corrupt)
// come back as Unset and the returned error wraps ErrUninitialized.
func (s *fileStore) Load() (Calibration, error) {
	img, err := s.readImage()
	if err != nil {
		return Calibration{Low: Unset, High: Unset}, err
	}

	cal := Calibration{Low: Unset, High: Unset}
	var errs []error
	for _, e := range []Endpoint{Low, High} {
		v, err := decodeSlot(img, e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if e == Low {
			cal.Low = v
		} else {
			cal.High = v
		}
	}
	return cal, errors.Join(errs...)
}

// Save writes one endpoint. The other endpoint's cells are preserved.
func (s *fileStore) Save(e Endpoint, raw int) error {
	if e != Low && e != High {
		return fmt.Errorf("calibration: unknown endpoint %d", int(e))
	}
	q, r, err := Encode(raw)
	if err != nil {
		return err
	}
	img, err := s.readImage()
	if err != nil {
		return err
	}

	off := int(e) * slotSize
	img[off] = markerWritten
	img[off+1] = q
	img[off+2] = r

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, img, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) readImage() ([]byte, error) {
	img := make([]byte, imageSize)
	for i := range img {
		img[i] = cellErased
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return img, nil
	}
	if err != nil {
		return nil, err
	}
	copy(img, b)
	return img, nil
}

func decodeSlot(img []byte, e Endpoint) (int, error) {
	off := int(e) * slotSize
	if img[off] != markerWritten {
		return Unset, fmt.Errorf("%w: %s never written", ErrUninitialized, e)
	}
	if img[off+2] >= Modulus {
		return Unset, fmt.Errorf("%w: %s remainder cell corrupt (%d)", ErrUninitialized, e, img[off+2])
	}
	return Decode(img[off+1], img[off+2]), nil
}

// Encode splits a raw sensor value into one quotient cell and one remainder cell.
func Encode(raw int) (quotient, remainder byte, err error) {
	if raw < 0 || raw > SensorMax {
		return 0, 0, fmt.Errorf("%w: %d not in [0,%d]", ErrOutOfRange, raw, SensorMax)
	}
	return byte(raw / Modulus), byte(raw % Modulus), nil
}

// Decode reverses Encode.
func Decode(quotient, remainder byte) int {
	return int(quotient)*Modulus + int(remainder)
}
