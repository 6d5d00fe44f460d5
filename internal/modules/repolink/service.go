// Package repolink ingests a linked GitHub repository as text evidence for
// an already-cataloged document: README and source files are chunked,
// embedded, and upserted under the document's id.
package repolink

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/pkg/embedding"
	"github.com/paperlens/core/internal/pkg/vectorstore"
)

const (
	maxFiles     = 40
	maxFileBytes = 512 * 1024
	chunkTarget  = 1500
)

// DocumentChecker verifies the target document exists before evidence is
// attached. *library.Service satisfies it.
type DocumentChecker interface {
	Get(ctx context.Context, docID string) (*models.Document, error)
}

type Service struct {
	gh       *gh.Client
	docs     DocumentChecker
	store    vectorstore.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

func NewService(token string, docs DocumentChecker, store vectorstore.Store, embedder embedding.Embedder, logger *zap.Logger) *Service {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Service{gh: client, docs: docs, store: store, embedder: embedder, logger: logger}
}

// LinkResult summarizes what was ingested.
type LinkResult struct {
	DocID      string `json:"doc_id"`
	Repository string `json:"repository"`
	FileCount  int    `json:"file_count"`
	ChunkCount int    `json:"chunk_count"`
}

// Link fetches the repository's README and source files and ingests them as
// text chunks attached to docID. Files that cannot be read are skipped.
func (s *Service) Link(ctx context.Context, docID, owner, repo string) (*LinkResult, error) {
	if _, err := s.docs.Get(ctx, docID); err != nil {
		return nil, err
	}

	repository, _, err := s.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch repository %s/%s: %w", owner, repo, err)
	}
	branch := repository.GetDefaultBranch()
	fullName := repository.GetFullName()

	files := s.collectFiles(ctx, owner, repo, branch)
	if len(files) == 0 {
		return nil, fmt.Errorf("repository %s/%s has no ingestible files", owner, repo)
	}

	var records []vectorstore.Record
	var texts []string
	chunkIndex := 0
	for _, file := range files {
		for _, chunk := range chunkContent(file.content) {
			records = append(records, vectorstore.Record{
				ID:   fmt.Sprintf("%s::repo::%04d", docID, chunkIndex),
				Text: chunk,
				Meta: models.ChunkMetadata{
					DocID:       docID,
					Title:       fullName,
					SourceURL:   fmt.Sprintf("https://github.com/%s/blob/%s/%s", fullName, branch, file.path),
					Modality:    models.ModalityText,
					HeadingPath: models.StringArray{"Repository", file.path},
					ChunkIndex:  chunkIndex,
					Additional: map[string]string{
						"source": "repository",
						"path":   file.path,
					},
				},
			})
			texts = append(texts, chunk)
			chunkIndex++
		}
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed repository content: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, errors.New("embedding count mismatch for repository content")
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}

	if err := s.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert repository content: %w", err)
	}

	s.logger.Info("repository linked",
		zap.String("doc_id", docID),
		zap.String("repository", fullName),
		zap.Int("files", len(files)),
		zap.Int("chunks", len(records)))

	return &LinkResult{
		DocID:      docID,
		Repository: fullName,
		FileCount:  len(files),
		ChunkCount: len(records),
	}, nil
}

type repoFile struct {
	path    string
	content string
}

// collectFiles walks the default branch tree, README first, and fetches up
// to maxFiles text files worth ingesting.
func (s *Service) collectFiles(ctx context.Context, owner, repo, branch string) []repoFile {
	var files []repoFile

	if readme, _, err := s.gh.Repositories.GetReadme(ctx, owner, repo, nil); err == nil {
		if content, err := readme.GetContent(); err == nil && strings.TrimSpace(content) != "" {
			files = append(files, repoFile{path: readme.GetPath(), content: content})
		}
	}

	tree, _, err := s.gh.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		s.logger.Warn("repository tree unavailable, ingesting README only",
			zap.String("repository", owner+"/"+repo),
			zap.Error(err))
		return files
	}

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.path] = struct{}{}
	}

	for _, entry := range tree.Entries {
		if len(files) >= maxFiles {
			break
		}
		if entry.GetType() != "blob" || !ingestiblePath(entry.GetPath()) {
			continue
		}
		if entry.GetSize() > maxFileBytes {
			continue
		}
		if _, ok := seen[entry.GetPath()]; ok {
			continue
		}

		blob, _, err := s.gh.Git.GetBlob(ctx, owner, repo, entry.GetSHA())
		if err != nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
		if err != nil || len(raw) == 0 {
			continue
		}
		files = append(files, repoFile{path: entry.GetPath(), content: string(raw)})
		seen[entry.GetPath()] = struct{}{}
	}
	return files
}

var ingestibleExtensions = map[string]struct{}{
	".md": {}, ".rst": {}, ".txt": {},
	".go": {}, ".py": {}, ".rs": {}, ".java": {},
	".js": {}, ".ts": {}, ".c": {}, ".cpp": {}, ".h": {},
	".yaml": {}, ".yml": {}, ".toml": {},
}

func ingestiblePath(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	_, ok := ingestibleExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// chunkContent splits file content into pieces near the target size,
// breaking on line boundaries so code stays readable in prompts.
func chunkContent(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= chunkTarget {
		return []string{content}
	}

	var chunks []string
	var b strings.Builder
	for _, line := range strings.SplitAfter(content, "\n") {
		if b.Len() > 0 && b.Len()+len(line) > chunkTarget {
			chunks = append(chunks, strings.TrimSpace(b.String()))
			b.Reset()
		}
		b.WriteString(line)
	}
	if trailing := strings.TrimSpace(b.String()); trailing != "" {
		chunks = append(chunks, trailing)
	}
	return chunks
}
