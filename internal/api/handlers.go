package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/roomrent/internal/feed"
	"github.com/npezzotti/roomrent/internal/listing"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

const (
	maxFormMemory = 32 << 20
	maxImageSize  = 10 << 20
	imagesField   = "images"
	removedField  = "removed_images"
)

type PopulateImagesResponse struct {
	Updated int `json:"updated"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode", zap.Error(err))
	}
}

func (s *App) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseAmount parses a finite decimal amount. ParseFloat also accepts
// "NaN" and "Inf", which no rent can be.
func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func parsePrice(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}

	v, err := parseAmount(raw)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number", key)
	}

	return &v, nil
}

func parseRoomFilter(q url.Values) (types.RoomFilter, error) {
	filter := types.RoomFilter{Location: strings.TrimSpace(q.Get("location"))}

	var err error
	if filter.MinPrice, err = parsePrice(q, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parsePrice(q, "max_price"); err != nil {
		return filter, err
	}

	return filter, nil
}

func (s *App) listRooms(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRoomFilter(r.URL.Query())
	if err != nil {
		errResp := NewValidationError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, s.listings.ListRooms(r.Context(), filter))
}

func (s *App) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.listings.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		errResp := listingError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *App) listOwnerRooms(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	rooms, err := s.listings.ListOwnerRooms(r.Context(), user.Id)
	if err != nil {
		errResp := listingError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

// parseRoomForm accepts multipart or urlencoded bodies.
func parseRoomForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}

	return nil
}

func roomFieldsFromForm(form url.Values) (listing.RoomFields, error) {
	fields := listing.RoomFields{
		Title:            strings.TrimSpace(form.Get("title")),
		Location:         strings.TrimSpace(form.Get("location")),
		PropertyType:     strings.TrimSpace(form.Get("property_type")),
		TenantPreference: strings.TrimSpace(form.Get("tenant_preference")),
		ContactNumber:    strings.TrimSpace(form.Get("contact_number")),
	}

	rent, err := parseAmount(strings.TrimSpace(form.Get("rent")))
	if err != nil {
		return fields, errors.New("rent must be a number")
	}
	fields.Rent = rent

	return fields, nil
}

func readUpload(fh *multipart.FileHeader) (listing.Upload, error) {
	if fh.Size > maxImageSize {
		return listing.Upload{}, fmt.Errorf("%s exceeds %d bytes", fh.Filename, maxImageSize)
	}

	f, err := fh.Open()
	if err != nil {
		return listing.Upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize))
	if err != nil {
		return listing.Upload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	return listing.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func uploadsFromRequest(r *http.Request) ([]listing.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var uploads []listing.Upload
	for _, fh := range r.MultipartForm.File[imagesField] {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}

	return uploads, nil
}

func (s *App) createRoom(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	if err := parseRoomForm(r); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	fields, err := roomFieldsFromForm(r.Form)
	if err != nil {
		errResp := NewValidationError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	files, err := uploadsFromRequest(r)
	if err != nil {
		errResp := NewValidationError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	res, err := s.listings.Create(r.Context(), user.Id, listing.Draft{RoomFields: fields, Files: files})
	if err != nil {
		errResp := listingError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	status := http.StatusCreated
	if res.SavedLocally {
		status = http.StatusAccepted
	}

	s.writeJson(w, status, res)
}

func (s *App) editRoom(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	if err := parseRoomForm(r); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	req := listing.EditRequest{
		RoomId:        r.PathValue("id"),
		OwnerId:       user.Id,
		RemovedImages: r.Form[removedField],
	}

	if r.Form.Has("title") {
		fields, err := roomFieldsFromForm(r.Form)
		if err != nil {
			errResp := NewValidationError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		req.Fields = &fields
	}

	files, err := uploadsFromRequest(r)
	if err != nil {
		errResp := NewValidationError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	req.NewFiles = files

	res, err := s.listings.Edit(r.Context(), req)
	if err != nil {
		errResp := listingError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, res)
}

func (s *App) deleteRoom(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	if err := s.listings.Delete(r.Context(), r.PathValue("id"), user.Id); err != nil {
		errResp := listingError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *App) populateImages(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	n, err := s.listings.PopulateImages(r.Context(), user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, PopulateImagesResponse{Updated: n})
}

func (s *App) diagnostics(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.diag.Run(r.Context(), UserFrom(r.Context())))
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("error upgrading connection", zap.Error(err))
		return
	}

	client := feed.NewClient(conn, s.hub, s.log)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
