// Package storage はアップロード画像・処理済み画像のローカルファイル保存を提供します。
package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// FileStore はメディアルート配下に日付パーティション構造でファイルを保存します。
//
//	uploads/YYYY/MM/DD/<uuid><ext>        元画像
//	processed/YYYY/MM/DD/processed_<name> 注釈付き画像
//
// 返却されるパスはメディアルートからの相対パスで、DBにはこの相対パスを保存します。
type FileStore struct {
	root string
}

// NewFileStore は指定ルートディレクトリのFileStoreを生成します。
// ディレクトリが存在しない場合は作成します。
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = "media"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Root はメディアルートの絶対パス（または相対パス）を返します。
func (s *FileStore) Root() string {
	return s.root
}

// SaveOriginal はアップロードされた元画像バイト列を保存し、相対パスを返します。
// ファイル名衝突を避けるためUUIDで保存し、拡張子のみ元のファイル名から引き継ぎます。
func (s *FileStore) SaveOriginal(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	rel := filepath.Join(datePartition("uploads"), uuid.New().String()+ext)

	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write original image: %w", err)
	}
	return rel, nil
}

// SaveProcessed は注釈付き画像を元画像と対応する名前で保存し、相対パスを返します。
// 出力フォーマットは拡張子から決まります（元画像と同形式）。
func (s *FileStore) SaveProcessed(originalPath string, img image.Image) (string, error) {
	base := filepath.Base(originalPath)
	rel := filepath.Join(datePartition("processed"), "processed_"+base)

	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create processed dir: %w", err)
	}
	if err := imaging.Save(img, abs); err != nil {
		return "", fmt.Errorf("failed to save processed image: %w", err)
	}
	return rel, nil
}

// Remove は相対パスのファイルを削除します。存在しない場合はエラーになりません。
func (s *FileStore) Remove(relPath string) error {
	if relPath == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.root, relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", relPath, err)
	}
	return nil
}

// Abs は相対パスをメディアルート配下の実パスへ変換します。
func (s *FileStore) Abs(relPath string) string {
	return filepath.Join(s.root, relPath)
}

// URL は保存済みファイルの配信URLパスを返します。
func (s *FileStore) URL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return "/media/" + filepath.ToSlash(relPath)
}

// datePartition はprefix/YYYY/MM/DD形式のディレクトリパスを返します。
func datePartition(prefix string) string {
	now := time.Now()
	return filepath.Join(prefix, fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", now.Month()), fmt.Sprintf("%02d", now.Day()))
}
