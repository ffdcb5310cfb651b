package storyctx

import (
	"context"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
)

// memEntityStorage is an in-memory EntityStorage for context tests.
type memEntityStorage struct {
	projects   map[string]*models.Project
	characters map[string]*models.Character
	objects    map[string]*models.SceneObject
	scenes     map[string]*models.Scene
	frames     map[string]*models.Frame
	videos     map[string]*models.Video
}

func newMemEntityStorage() *memEntityStorage {
	return &memEntityStorage{
		projects:   make(map[string]*models.Project),
		characters: make(map[string]*models.Character),
		objects:    make(map[string]*models.SceneObject),
		scenes:     make(map[string]*models.Scene),
		frames:     make(map[string]*models.Frame),
		videos:     make(map[string]*models.Video),
	}
}

func (s *memEntityStorage) SaveProject(ctx context.Context, p *models.Project) error {
	s.projects[p.ID] = p
	return nil
}

func (s *memEntityStorage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return p, nil
}

func (s *memEntityStorage) SaveCharacter(ctx context.Context, c *models.Character) error {
	s.characters[c.ID] = c
	return nil
}

func (s *memEntityStorage) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	c, ok := s.characters[id]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return c, nil
}

func (s *memEntityStorage) ListCharacters(ctx context.Context, projectID string) ([]*models.Character, error) {
	var result []*models.Character
	for _, c := range s.characters {
		if c.ProjectID == projectID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *memEntityStorage) SaveObject(ctx context.Context, o *models.SceneObject) error {
	s.objects[o.ID] = o
	return nil
}

func (s *memEntityStorage) GetObject(ctx context.Context, id string) (*models.SceneObject, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return o, nil
}

func (s *memEntityStorage) ListObjects(ctx context.Context, projectID string) ([]*models.SceneObject, error) {
	var result []*models.SceneObject
	for _, o := range s.objects {
		if o.ProjectID == projectID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (s *memEntityStorage) SaveScene(ctx context.Context, sc *models.Scene) error {
	s.scenes[sc.ID] = sc
	return nil
}

func (s *memEntityStorage) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	sc, ok := s.scenes[id]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return sc, nil
}

func (s *memEntityStorage) ListScenes(ctx context.Context, projectID string) ([]*models.Scene, error) {
	var result []*models.Scene
	for _, sc := range s.scenes {
		if sc.ProjectID == projectID {
			result = append(result, sc)
		}
	}
	return result, nil
}

func (s *memEntityStorage) SaveFrame(ctx context.Context, f *models.Frame) error {
	s.frames[f.ID] = f
	return nil
}

func (s *memEntityStorage) GetFrame(ctx context.Context, id string) (*models.Frame, error) {
	f, ok := s.frames[id]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return f, nil
}

func (s *memEntityStorage) ListFrames(ctx context.Context, sceneID string) ([]*models.Frame, error) {
	var result []*models.Frame
	for _, f := range s.frames {
		if f.SceneID == sceneID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (s *memEntityStorage) SaveVideo(ctx context.Context, v *models.Video) error {
	s.videos[v.ID] = v
	return nil
}

func (s *memEntityStorage) ListVideos(ctx context.Context, projectID string) ([]*models.Video, error) {
	var result []*models.Video
	for _, v := range s.videos {
		if v.ProjectID == projectID {
			result = append(result, v)
		}
	}
	return result, nil
}

var _ interfaces.EntityStorage = (*memEntityStorage)(nil)
