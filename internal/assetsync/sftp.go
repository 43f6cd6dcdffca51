package assetsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig describes the photo host connection.
type SFTPConfig struct {
	Addr     string // host:port
	User     string
	Password string
	Timeout  time.Duration
}

// SFTPStore is the production Store implementation backed by the photo host.
type SFTPStore struct {
	conn *ssh.Client
	sftp *sftp.Client
}

func DialSFTP(cfg SFTPConfig) (*SFTPStore, error) {
	if cfg.Addr == "" || cfg.User == "" {
		return nil, errors.New("sftp addr and user are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	conn, err := ssh.Dial("tcp", cfg.Addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("sftp dial: %w", err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	return &SFTPStore{conn: conn, sftp: client}, nil
}

func (s *SFTPStore) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.sftp.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		names = append(names, fi.Name())
	}
	return names, nil
}

func (s *SFTPStore) Put(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.sftp.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *SFTPStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sftp.Remove(path)
}

func (s *SFTPStore) Close() error {
	if err := s.sftp.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}
