package services

import (
	"strconv"
	"strings"
)

func joinIDs(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, "#"+strconv.FormatUint(id, 10))
	}
	return strings.Join(parts, ", ")
}
