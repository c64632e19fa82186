package registry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
)

// stagingSuffix marks a release being unpacked next to its final path.
const stagingSuffix = ".envdeploy-staging"

// Install downloads rel and unpacks it into dest, replacing whatever dest
// held. The top-level directory of the tarball is stripped.
func (c *Client) Install(ctx context.Context, rel *Release, dest string) error {
	if rel == nil || rel.FileURI == "" {
		return errors.New(errors.ErrRegistry, "release has no file to download")
	}
	c.logger.Debug().Str("release", rel.Slug).Str("dest", dest).Msg("Installing release")

	resp, err := c.get(ctx, rel.FileURI)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	staging := dest + stagingSuffix
	if err := os.RemoveAll(staging); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to clear %s", staging)
	}

	hasher := sha256.New()
	body := io.TeeReader(resp.Body, hasher)
	if err := extractTarGz(body, staging); err != nil {
		_ = os.RemoveAll(staging)
		return errors.Wrapf(err, errors.ErrRegistry, "failed to unpack %s", rel.Slug).
			WithDetail("release", rel.Slug)
	}
	// Hash the whole download, including any trailing padding
	if _, err := io.Copy(io.Discard, body); err != nil {
		_ = os.RemoveAll(staging)
		return errors.Wrapf(err, errors.ErrRegistry, "failed to read %s", rel.Slug)
	}
	if rel.FileSHA256 != "" {
		if sum := hex.EncodeToString(hasher.Sum(nil)); !strings.EqualFold(sum, rel.FileSHA256) {
			_ = os.RemoveAll(staging)
			return errors.Newf(errors.ErrRegistry, "checksum mismatch for %s", rel.Slug).
				WithDetail("expected", rel.FileSHA256).
				WithDetail("actual", sum)
		}
	}

	if err := os.RemoveAll(dest); err != nil {
		_ = os.RemoveAll(staging)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to remove %s", dest)
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.RemoveAll(staging)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to move release into %s", dest)
	}
	return nil
}

func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := stripTopDir(hdr.Name)
		if name == "" {
			continue
		}
		target, err := safeJoin(dest, name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			mode := os.FileMode(0644)
			if hdr.FileInfo().Mode()&0111 != 0 {
				mode = 0755
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
		// Links and special files are not part of module releases
	}
}

// stripTopDir drops the leading "owner-name-version/" component.
func stripTopDir(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if _, rest, found := strings.Cut(name, "/"); found {
		return strings.TrimSuffix(rest, "/")
	}
	return ""
}

func safeJoin(base, name string) (string, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("absolute archive path: %s", name)
	}
	target := filepath.Join(base, clean)
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid archive path: %s", name)
	}
	return target, nil
}
