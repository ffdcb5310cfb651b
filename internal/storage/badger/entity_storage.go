package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// EntityStorage implements the EntityStorage interface for Badger. It holds
// the persisted pipeline entities; the context builder depends on its
// list-by-project reads.
type EntityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEntityStorage creates a new EntityStorage instance
func NewEntityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EntityStorage {
	return &EntityStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EntityStorage) SaveProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.db.Store().Upsert(p.ID, p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (s *EntityStorage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.Store().Get(id, &p)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

func (s *EntityStorage) SaveCharacter(ctx context.Context, c *models.Character) error {
	if c.ID == "" || c.ProjectID == "" {
		return fmt.Errorf("character requires id and project_id")
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := s.db.Store().Upsert(c.ID, c); err != nil {
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (s *EntityStorage) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	var c models.Character
	err := s.db.Store().Get(id, &c)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return &c, nil
}

func (s *EntityStorage) ListCharacters(ctx context.Context, projectID string) ([]*models.Character, error) {
	var chars []models.Character
	if err := s.db.Store().Find(&chars, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")); err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].CreatedAt.Before(chars[j].CreatedAt) })
	result := make([]*models.Character, 0, len(chars))
	for i := range chars {
		result = append(result, &chars[i])
	}
	return result, nil
}

func (s *EntityStorage) SaveObject(ctx context.Context, o *models.SceneObject) error {
	if o.ID == "" || o.ProjectID == "" {
		return fmt.Errorf("object requires id and project_id")
	}
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if err := s.db.Store().Upsert(o.ID, o); err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

func (s *EntityStorage) GetObject(ctx context.Context, id string) (*models.SceneObject, error) {
	var o models.SceneObject
	err := s.db.Store().Get(id, &o)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &o, nil
}

func (s *EntityStorage) ListObjects(ctx context.Context, projectID string) ([]*models.SceneObject, error) {
	var objects []models.SceneObject
	if err := s.db.Store().Find(&objects, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].CreatedAt.Before(objects[j].CreatedAt) })
	result := make([]*models.SceneObject, 0, len(objects))
	for i := range objects {
		result = append(result, &objects[i])
	}
	return result, nil
}

func (s *EntityStorage) SaveScene(ctx context.Context, sc *models.Scene) error {
	if sc.ID == "" || sc.ProjectID == "" {
		return fmt.Errorf("scene requires id and project_id")
	}
	now := time.Now()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now
	if err := s.db.Store().Upsert(sc.ID, sc); err != nil {
		return fmt.Errorf("failed to save scene: %w", err)
	}
	return nil
}

func (s *EntityStorage) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	var sc models.Scene
	err := s.db.Store().Get(id, &sc)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}
	return &sc, nil
}

func (s *EntityStorage) ListScenes(ctx context.Context, projectID string) ([]*models.Scene, error) {
	var scenes []models.Scene
	if err := s.db.Store().Find(&scenes, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")); err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Order < scenes[j].Order })
	result := make([]*models.Scene, 0, len(scenes))
	for i := range scenes {
		result = append(result, &scenes[i])
	}
	return result, nil
}

func (s *EntityStorage) SaveFrame(ctx context.Context, f *models.Frame) error {
	if f.ID == "" || f.SceneID == "" {
		return fmt.Errorf("frame requires id and scene_id")
	}
	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	if err := s.db.Store().Upsert(f.ID, f); err != nil {
		return fmt.Errorf("failed to save frame: %w", err)
	}
	return nil
}

func (s *EntityStorage) GetFrame(ctx context.Context, id string) (*models.Frame, error) {
	var f models.Frame
	err := s.db.Store().Get(id, &f)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	return &f, nil
}

func (s *EntityStorage) ListFrames(ctx context.Context, sceneID string) ([]*models.Frame, error) {
	var frames []models.Frame
	if err := s.db.Store().Find(&frames, badgerhold.Where("SceneID").Eq(sceneID).Index("SceneID")); err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].FrameNumber < frames[j].FrameNumber })
	result := make([]*models.Frame, 0, len(frames))
	for i := range frames {
		result = append(result, &frames[i])
	}
	return result, nil
}

func (s *EntityStorage) SaveVideo(ctx context.Context, v *models.Video) error {
	if v.ID == "" || v.ProjectID == "" {
		return fmt.Errorf("video requires id and project_id")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(v.ID, v); err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

func (s *EntityStorage) ListVideos(ctx context.Context, projectID string) ([]*models.Video, error) {
	var videos []models.Video
	if err := s.db.Store().Find(&videos, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].CreatedAt.Before(videos[j].CreatedAt) })
	result := make([]*models.Video, 0, len(videos))
	for i := range videos {
		result = append(result, &videos[i])
	}
	return result, nil
}
