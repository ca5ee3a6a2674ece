package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/middlewares"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/services"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// MenuController -> baca dan ubah catalog tree (menu, section, product, option group, option)
type MenuController struct {
	Store       *catalog.Store
	Coordinator *services.MutationCoordinator
}

func NewMenuController(store *catalog.Store, coordinator *services.MutationCoordinator) *MenuController {
	return &MenuController{Store: store, Coordinator: coordinator}
}

// mutationView -> response 202 untuk create/update/delete
type mutationView struct {
	Kind  services.MutationKind  `json:"kind"`
	Level string                 `json:"level"`
	ID    string                 `json:"id"`
	Path  catalog.Path           `json:"path"`
	State services.MutationState `json:"state"`
}

func viewOf(m *services.Mutation) mutationView {
	return mutationView{
		Kind:  m.Kind,
		Level: m.Level.String(),
		ID:    m.NodeID(),
		Path:  m.Path(),
		State: m.State(),
	}
}

// GetAllMenus -> seluruh tree yang boleh dilihat user
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	claims := middlewares.Claims(c)
	menus := mc.Store.Menus()
	out := make([]models.Menu, 0, len(menus))
	for _, m := range menus {
		if claims == nil || claims.CanAccess(m.BusinessID) {
			out = append(out, m)
		}
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", out)
}

// GetNode -> GET /api/catalog/menus/:m/sections/:s/...
func (mc *MenuController) GetNode(c *gin.Context) {
	path, err := catalog.ParseResourcePath(c.Param("path"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !mc.allowed(c, path, "") {
		return
	}
	node, ok := mc.Store.Node(path)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("%s %s not found", path.Level(), path.Last()))
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("%s detail", path.Level()), node)
}

// CreateNode -> POST ke collection path, mis. /api/catalog/menus/m1/sections
func (mc *MenuController) CreateNode(c *gin.Context) {
	parent, level, err := catalog.ParseCollectionPath(c.Param("path"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	entity, businessID, err := decodeEntity(c, level)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if level == catalog.LevelMenu && businessID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("business_id is required"))
		return
	}
	if !mc.allowed(c, parent, businessID) {
		return
	}

	m, err := mc.Coordinator.Create(parent, entity)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, fmt.Sprintf("%s created locally", level), viewOf(m))
}

// UpdateNode -> PATCH dengan body patch dangkal
func (mc *MenuController) UpdateNode(c *gin.Context) {
	path, err := catalog.ParseResourcePath(c.Param("path"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var patch models.Patch
	if err := decodeJSON(c, &patch); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !mc.allowed(c, path, "") {
		return
	}

	m, err := mc.Coordinator.Update(path, patch)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, fmt.Sprintf("%s updated locally", path.Level()), viewOf(m))
}

func (mc *MenuController) DeleteNode(c *gin.Context) {
	path, err := catalog.ParseResourcePath(c.Param("path"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !mc.allowed(c, path, "") {
		return
	}

	m, err := mc.Coordinator.Delete(path)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, fmt.Sprintf("%s deleted locally", path.Level()), viewOf(m))
}

// allowed -> cek akses business dari menu teratas path (atau businessID untuk menu baru).
// Menu yang tidak dikenal dibiarkan lewat supaya handler menjawab 404.
func (mc *MenuController) allowed(c *gin.Context, path catalog.Path, businessID string) bool {
	claims := middlewares.Claims(c)
	if claims == nil {
		return true
	}
	if len(path) > 0 {
		b, ok := mc.Store.BusinessID(path[0])
		if !ok {
			return true
		}
		businessID = b
	}
	if businessID != "" && !claims.CanAccess(businessID) {
		utils.RespondError(c, http.StatusForbidden, errors.New("business access denied"))
		return false
	}
	return true
}

func decodeJSON(c *gin.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// decodeEntity -> body POST ke tipe sesuai level collection
func decodeEntity(c *gin.Context, level catalog.Level) (interface{}, string, error) {
	var err error
	switch level {
	case catalog.LevelMenu:
		var v models.Menu
		err = decodeJSON(c, &v)
		return v, v.BusinessID, err
	case catalog.LevelSection:
		var v models.Section
		err = decodeJSON(c, &v)
		return v, "", err
	case catalog.LevelProduct:
		var v models.Product
		err = decodeJSON(c, &v)
		return v, "", err
	case catalog.LevelOptionGroup:
		var v models.OptionGroup
		err = decodeJSON(c, &v)
		return v, "", err
	case catalog.LevelOption:
		var v models.Option
		err = decodeJSON(c, &v)
		return v, "", err
	}
	return nil, "", fmt.Errorf("%w: level %s", catalog.ErrLevelMismatch, level)
}

func respondMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrParentNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrPendingParent), errors.Is(err, services.ErrPendingChildren):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrEmptyPatch),
		errors.Is(err, catalog.ErrLevelMismatch),
		errors.Is(err, catalog.ErrEmptyID):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrCoordinatorClosed):
		utils.RespondError(c, http.StatusServiceUnavailable, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
