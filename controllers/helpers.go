package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/utils"
)

// parseID reads a positive numeric path parameter, answering 400 when it is not one
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, utils.ErrInvalidID, c.Param(name))
		return 0, false
	}
	return uint(id), true
}

// queryUint reads an optional numeric query parameter
func queryUint(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid "+name, raw)
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// queryBool reads an optional true/false query parameter
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		utils.BadRequest(c, "Invalid "+name, raw)
		return nil, false
	}
	return &v, true
}

// queryDate reads an optional YYYY-MM-DD query parameter in loc
func queryDate(c *gin.Context, name string, loc *time.Location) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := utils.ParseDate(raw, loc)
	if err != nil {
		utils.BadRequest(c, "Invalid "+name, err.Error())
		return nil, false
	}
	return &d, true
}
