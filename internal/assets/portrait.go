package assets

import (
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DefaultPortraitSize is the edge length of stored portraits, in pixels.
const DefaultPortraitSize = 256

// ImportPortrait decodes an image (PNG, JPEG, GIF, BMP, TIFF), crops it to a
// centred square of size x size pixels and stores it as PNG. It returns the
// relative path to record on the NPC.
func (s *Signer) ImportPortrait(r io.Reader, npcID uuid.UUID, size int) (string, error) {
	if size <= 0 {
		size = DefaultPortraitSize
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode portrait: %w", err)
	}
	square := Square(img, size)

	rel := path.Join("portraits", npcID.String()+".png")
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create portrait dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".portrait-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if err := imaging.Encode(tmp, square, imaging.PNG); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode portrait: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", err
	}
	return rel, nil
}

// Square crops img to its centred square and resizes it to size x size.
func Square(img image.Image, size int) *image.NRGBA {
	return imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
}
