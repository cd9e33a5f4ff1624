package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/mikhailv/fnstream/internal/log"
)

func (s *HTTPServer) filterLogs(req *http.Request) FilterFunc[log.Entry] {
	levels := slices.DeleteFunc(strings.Split(req.URL.Query().Get("level"), ","), func(v string) bool { return v == "" })
	if len(levels) == 0 {
		return nil
	}
	levelSet := map[string]bool{}
	for _, level := range levels {
		levelSet[strings.ToUpper(level)] = true
	}
	return func(val log.Entry) bool {
		return levelSet[val.Level]
	}
}
