package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"cogentcore.org/core/math32"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-treeform/pkg/audio"
	"github.com/teslashibe/go-treeform/pkg/camera"
	"github.com/teslashibe/go-treeform/pkg/morph"
	"github.com/teslashibe/go-treeform/pkg/scene"
)

// ErrNotImage is returned for photo uploads that are not images.
var ErrNotImage = errors.New("not an image")

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Frame    uint64               `json:"frame"`
	Time     float64              `json:"time"`
	Mode     camera.Mode          `json:"mode"`
	Sticky   bool                 `json:"sticky"`
	Beat     float64              `json:"beat"`
	Detector scene.DetectorStatus `json:"detector"`
	Entities map[morph.Kind]int   `json:"entities"`
	Clients  map[string]int       `json:"clients"`
	Music    *audio.Track         `json:"music,omitempty"`
}

// handleStatus returns a summary of the scene
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		Entities: s.director.Arena().Count(),
		Clients:  s.ClientCounts(),
	}
	if f, ok := s.director.LastFrame(); ok {
		resp.Frame = f.Seq
		resp.Time = f.Time
		resp.Mode = f.Camera.Mode
		resp.Sticky = f.Focus.Sticky
		resp.Beat = f.Beat
		resp.Detector = f.Detector
	}
	if t, playing := s.director.Tracks().Current(); playing {
		resp.Music = &t
	}
	return c.JSON(resp)
}

// EntityView is the API shape of one entity.
type EntityView struct {
	ID         morph.EntityID `json:"id"`
	Kind       morph.Kind     `json:"kind"`
	Structural math32.Vector3 `json:"structural"`
	Scatter    math32.Vector3 `json:"scatter"`
	Basis      math32.Quat    `json:"basis"`
	Offset     float32        `json:"offset"`
	Scale      float32        `json:"scale"`
	Color      [3]float32     `json:"color"`
	UploadID   *uuid.UUID     `json:"upload_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	ImageURL   string         `json:"image_url,omitempty"`
}

func viewOf(e *morph.Entity) EntityView {
	v := EntityView{
		ID:         e.ID,
		Kind:       e.Kind,
		Structural: e.Structural,
		Scatter:    e.Scatter,
		Basis:      e.Basis,
		Offset:     e.Offset,
		Scale:      e.Scale,
		Color:      e.Color,
		Name:       e.Name,
	}
	if e.Kind == morph.KindPhoto {
		id := e.UploadID
		v.UploadID = &id
		v.ImageURL = "/api/photos/" + id.String() + "/image"
	}
	return v
}

// handleEntities lists live entities, optionally filtered by ?kind=
func (s *Server) handleEntities(c *fiber.Ctx) error {
	var (
		filter   morph.Kind
		filtered bool
	)
	if name := c.Query("kind"); name != "" {
		k, ok := morph.ParseKind(name)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown kind: "+name)
		}
		filter, filtered = k, true
	}

	out := []EntityView{}
	for _, e := range s.director.Arena().Snapshot() {
		if e.Removed || (filtered && e.Kind != filter) {
			continue
		}
		out = append(out, viewOf(&e))
	}
	return c.JSON(out)
}

// Geometry is the static particle data a renderer uploads once; per frame it
// only needs the layer explosion scalars.
type Geometry struct {
	Count      int              `json:"count"`
	Structural []math32.Vector3 `json:"structural"`
	Scatter    []math32.Vector3 `json:"scatter"`
	Offset     []float32        `json:"offset"`
	Color      [][3]float32     `json:"color"`
}

// handleGeometry returns the particle buffers keyed by kind
func (s *Server) handleGeometry(c *fiber.Ctx) error {
	out := map[morph.Kind]*Geometry{}
	for _, e := range s.director.Arena().Snapshot() {
		if !e.Kind.Particle() {
			continue
		}
		g := out[e.Kind]
		if g == nil {
			g = &Geometry{}
			out[e.Kind] = g
		}
		g.Count++
		g.Structural = append(g.Structural, e.Structural)
		g.Scatter = append(g.Scatter, e.Scatter)
		g.Offset = append(g.Offset, e.Offset)
		g.Color = append(g.Color, e.Color)
	}
	return c.JSON(out)
}

// handleListPhotos lists photos on the tree
func (s *Server) handleListPhotos(c *fiber.Ctx) error {
	out := []EntityView{}
	for _, e := range s.director.Photos() {
		out = append(out, viewOf(&e))
	}
	return c.JSON(out)
}

// handleUploadPhotos accepts a multipart batch in the "photos" field
func (s *Server) handleUploadPhotos(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expected multipart form")
	}
	files := form.File["photos"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files in field \"photos\"")
	}

	photos := make([]PhotoFile, 0, len(files))
	for _, fh := range files {
		b, err := readUpload(fh)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		photos = append(photos, PhotoFile{Name: fh.Filename, ContentType: b.contentType, Data: b.data})
	}

	ents, err := s.AddPhotos(photos)
	switch {
	case errors.Is(err, ErrNotImage):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, scene.ErrTooManyPhotos):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return err
	}

	out := make([]EntityView, len(ents))
	for i := range ents {
		out[i] = viewOf(&ents[i])
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// PhotoFile is one image to hang on the tree.
type PhotoFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// AddPhotos places a batch of images on the tree and keeps their bytes for
// the renderer.
func (s *Server) AddPhotos(files []PhotoFile) ([]morph.Entity, error) {
	names := make([]string, len(files))
	for i, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotImage, f.Name, f.ContentType)
		}
		names[i] = f.Name
	}

	ents, err := s.director.UploadPhotos(names)
	if err != nil {
		return nil, err
	}

	s.imagesMu.Lock()
	for i, e := range ents {
		s.images[e.UploadID] = blob{contentType: files[i].ContentType, data: files[i].Data}
	}
	s.imagesMu.Unlock()
	return ents, nil
}

// handlePhotoImage serves an uploaded photo
func (s *Server) handlePhotoImage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid photo id")
	}
	s.imagesMu.RLock()
	img, ok := s.images[id]
	s.imagesMu.RUnlock()
	if !ok {
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentType, img.contentType)
	return c.Send(img.data)
}

// handleDeletePhoto takes a photo off the tree
func (s *Server) handleDeletePhoto(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid photo id")
	}
	if err := s.director.RemovePhoto(id); errors.Is(err, morph.ErrUnknownEntity) {
		return fiber.ErrNotFound
	} else if err != nil {
		return err
	}

	s.imagesMu.Lock()
	delete(s.images, id)
	s.imagesMu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

// MusicResponse is the body of GET /api/music
type MusicResponse struct {
	Current audio.Track   `json:"current"`
	Playing bool          `json:"playing"`
	Tracks  []audio.Track `json:"tracks"`
}

// handleListMusic lists known tracks and the current selection
func (s *Server) handleListMusic(c *fiber.Ctx) error {
	cur, playing := s.director.Tracks().Current()
	return c.JSON(MusicResponse{
		Current: cur,
		Playing: playing,
		Tracks:  s.director.Tracks().List(),
	})
}

// handleUploadMusic accepts one file in the "music" field and plays it
func (s *Server) handleUploadMusic(c *fiber.Ctx) error {
	fh, err := c.FormFile("music")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "no file in field \"music\"")
	}
	upload, err := readUpload(fh)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	t, err := s.director.UploadMusic(fh.Filename, upload.contentType, upload.data)
	switch {
	case errors.Is(err, audio.ErrNotAudio):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, audio.ErrTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return err
	}

	s.announceMusic()
	return c.Status(fiber.StatusCreated).JSON(t)
}

// handleMusicData serves an uploaded track
func (s *Server) handleMusicData(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid track id")
	}
	t, err := s.director.Tracks().Get(id)
	if err != nil || !t.Uploaded {
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentType, t.ContentType)
	return c.Send(t.Data())
}

// handleGetCamera returns the camera tuning
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.director.Cameras().GetConfigJSON())
}

// handleUpdateCamera applies a partial tuning update or a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expected a JSON object")
	}
	if err := s.director.Cameras().UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.logger.Info("camera tuning updated", "fields", len(params))
	return c.JSON(s.director.Cameras().GetConfigJSON())
}

// handleCameraPresets lists the named camera presets
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.PresetNames())
}

func readUpload(fh *multipart.FileHeader) (blob, error) {
	f, err := fh.Open()
	if err != nil {
		return blob{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return blob{}, err
	}
	ctype := fh.Header.Get("Content-Type")
	if ctype == "" || ctype == "application/octet-stream" {
		ctype = http.DetectContentType(data)
	}
	return blob{contentType: ctype, data: data}, nil
}
