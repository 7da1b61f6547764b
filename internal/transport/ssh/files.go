package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Fetch copies a remote file to the local machine, through rsync when
// acceleration is configured. With a local cache directory set, the file is
// staged there before landing at dst.
func (t *Transport) Fetch(ctx context.Context, remoteSrc, localDst string) error {
	if t.files == nil {
		return fmt.Errorf("not connected")
	}

	if t.rsync == nil {
		return t.sftpFetch(remoteSrc, localDst)
	}

	target := localDst
	staged := ""
	if dir := t.cacheDir(); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
		staged = filepath.Join(dir, filepath.Base(localDst))
		target = staged
	}

	if err := t.rsyncFetch(ctx, remoteSrc, target); err != nil {
		return err
	}

	if staged != "" && staged != localDst {
		if err := copyLocal(staged, localDst); err != nil {
			return fmt.Errorf("failed to copy %s out of cache: %w", staged, err)
		}
	}
	return nil
}

// sftpFetch downloads one remote file over SFTP.
func (t *Transport) sftpFetch(remoteSrc, localDst string) error {
	src, err := t.files.Open(remoteSrc)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s on %s: %w", remoteSrc, t.addr, err)
	}
	defer src.Close()

	mode := os.FileMode(0o644)
	if info, err := src.Stat(); err == nil && info.Mode().Perm() != 0 {
		mode = info.Mode().Perm()
	}

	dst, err := os.OpenFile(localDst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localDst, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy %s from %s: %w", remoteSrc, t.addr, err)
	}
	return nil
}

// Upload copies a local file to the remote machine with the given
// permission bits, through rsync when acceleration is configured.
func (t *Transport) Upload(ctx context.Context, localSrc, remoteDst string, permissions uint32) error {
	if t.files == nil {
		return fmt.Errorf("not connected")
	}

	if t.rsync != nil {
		return t.rsyncPush(ctx, localSrc, remoteDst)
	}

	return t.sftpUpload(localSrc, remoteDst, os.FileMode(permissions))
}

// sftpUpload writes one local file to the remote side over SFTP.
func (t *Transport) sftpUpload(localSrc, remoteDst string, mode os.FileMode) error {
	src, err := os.Open(localSrc)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localSrc, err)
	}
	defer src.Close()

	if dir := path.Dir(remoteDst); dir != "." && dir != "/" {
		if err := t.files.MkdirAll(dir); err != nil && !os.IsExist(err) {
			return fmt.Errorf("failed to create remote directory %s on %s: %w", dir, t.addr, err)
		}
	}

	dst, err := t.files.Create(remoteDst)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s on %s: %w", remoteDst, t.addr, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", localSrc, t.addr, err)
	}

	if mode != 0 {
		if err := t.files.Chmod(remoteDst, mode); err != nil {
			return fmt.Errorf("failed to set mode on remote file %s on %s: %w", remoteDst, t.addr, err)
		}
	}
	return nil
}

// Install places a local file or directory tree on the remote machine,
// recursing into directories and preserving source modes.
func (t *Transport) Install(ctx context.Context, localSrc, remoteDst string) error {
	if t.files == nil {
		return fmt.Errorf("not connected")
	}

	info, err := os.Lstat(localSrc)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localSrc, err)
	}

	if !info.IsDir() {
		return t.sftpUpload(localSrc, remoteDst, info.Mode().Perm())
	}

	if err := t.files.MkdirAll(remoteDst); err != nil && !os.IsExist(err) {
		return fmt.Errorf("failed to create remote directory %s on %s: %w", remoteDst, t.addr, err)
	}
	if err := t.files.Chmod(remoteDst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set mode on remote directory %s on %s: %w", remoteDst, t.addr, err)
	}

	entries, err := os.ReadDir(localSrc)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", localSrc, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(localSrc, entry.Name())
		dstPath := path.Join(remoteDst, entry.Name())
		if err := t.Install(ctx, srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// MakeDirectory creates a remote directory and any missing parents.
func (t *Transport) MakeDirectory(ctx context.Context, dirPath string, permissions uint32) error {
	if t.files == nil {
		return fmt.Errorf("not connected")
	}

	if err := t.files.MkdirAll(dirPath); err != nil && !os.IsExist(err) {
		return fmt.Errorf("failed to create remote directory %s on %s: %w", dirPath, t.addr, err)
	}
	if err := t.files.Chmod(dirPath, os.FileMode(permissions)); err != nil {
		return fmt.Errorf("failed to set mode on remote directory %s on %s: %w", dirPath, t.addr, err)
	}
	return nil
}

// FilePermissions returns the permission bits of a remote path.
func (t *Transport) FilePermissions(ctx context.Context, filePath string) (uint32, error) {
	if t.files == nil {
		return 0, fmt.Errorf("not connected")
	}

	info, err := t.files.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat remote path %s on %s: %w", filePath, t.addr, err)
	}
	return uint32(info.Mode().Perm()), nil
}

// SetFilePermissions changes the permission bits of a remote path.
func (t *Transport) SetFilePermissions(ctx context.Context, filePath string, permissions uint32) error {
	if t.files == nil {
		return fmt.Errorf("not connected")
	}

	if err := t.files.Chmod(filePath, os.FileMode(permissions)); err != nil {
		return fmt.Errorf("failed to set mode on remote path %s on %s: %w", filePath, t.addr, err)
	}
	return nil
}

// copyLocal duplicates a local file preserving its mode.
func copyLocal(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
