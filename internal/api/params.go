package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	defaultPageLimit = 6
	maxPageLimit     = 100
)

// pathID parses a numeric path parameter. Anything else is reported as 404,
// the same as an id that does not exist.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// queryFlag treats "1" and "true" as set.
func queryFlag(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true":
		return true
	}
	return false
}

// parsePage reads the page and limit query parameters.
func parsePage(c *gin.Context) (types.Page, bool) {
	page := types.Page{Number: 1, Limit: defaultPageLimit}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid page"})
			return page, false
		}
		page.Number = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"errors": map[string][]string{"limit": {"A positive integer is required."}}})
			return page, false
		}
		page.Limit = min(n, maxPageLimit)
	}
	return page, true
}

// recipesLimit reads recipes_limit; missing or invalid values mean no limit.
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// respondPage writes one page of a list. A page past the last result is 404;
// the first page of an empty list is not.
func respondPage[T any](c *gin.Context, results []T, total int64, page types.Page) {
	if page.Number > 1 && int64(page.Offset()) >= total {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid page"})
		return
	}
	c.JSON(http.StatusOK, paginate(c, results, total, page))
}

// paginate wraps results in the list envelope with absolute next and previous
// links.
func paginate[T any](c *gin.Context, results []T, total int64, page types.Page) types.PageResponse[T] {
	resp := types.PageResponse[T]{Count: total, Results: results}
	if resp.Results == nil {
		resp.Results = []T{}
	}
	if int64(page.Number*page.Limit) < total {
		next := pageURL(c, page.Number+1)
		resp.Next = &next
	}
	if page.Number > 1 {
		prev := pageURL(c, page.Number-1)
		resp.Previous = &prev
	}
	return resp
}

func pageURL(c *gin.Context, number int) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	if number == 1 {
		q.Del("page")
	} else {
		q.Set("page", fmt.Sprint(number))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
