package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type regionDTO struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Code     string      `json:"code"`
	Children []regionDTO `json:"children,omitempty"`
}

type categoryDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
}

// ListRegions returns the top-level regions with their children nested.
func (s *Server) ListRegions(c *gin.Context) {
	regions, err := s.subsidies.ListRegions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	children := make(map[snowflake.ID][]regionDTO)
	for _, r := range regions {
		if r.ParentID == nil {
			continue
		}
		children[*r.ParentID] = append(children[*r.ParentID], regionDTO{
			ID:   r.ID.String(),
			Name: r.Name,
			Code: r.Code,
		})
	}

	var top []regionDTO
	for _, r := range regions {
		if r.ParentID != nil {
			continue
		}
		top = append(top, regionDTO{
			ID:       r.ID.String(),
			Name:     r.Name,
			Code:     r.Code,
			Children: children[r.ID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": top})
}

func (s *Server) GetRegionChildren(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid region id"))
		return
	}

	regions, err := s.subsidies.GetRegionChildren(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := make([]regionDTO, 0, len(regions))
	for _, r := range regions {
		data = append(data, regionDTO{ID: r.ID.String(), Name: r.Name, Code: r.Code})
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) ListCategories(c *gin.Context) {
	categories, err := s.subsidies.ListCategories(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := make([]categoryDTO, 0, len(categories))
	for _, cat := range categories {
		data = append(data, categoryDTO{
			ID:          cat.ID.String(),
			Name:        cat.Name,
			Code:        cat.Code,
			Description: cat.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
