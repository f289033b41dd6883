package fleet

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Server is one shard of the fleet. Index is 1-based; ownership is computed
// against Owner().
type Server struct {
	Index     uint8
	Port      uint16
	Directory string
	Label     string
}

// Owner is the 0-based index the partition function assigns to this server.
func (s Server) Owner() int16 {
	return int16(s.Index) - 1
}

func (s Server) WorldDir(levelName string) string {
	return filepath.Join(s.Directory, levelName)
}

// Servers enumerates count servers starting at startPort. The directory is the
// template and port joined by an underscore, lowercased, spaces replaced.
func Servers(count uint8, startPort uint16, template string) []Server {
	out := make([]Server, 0, count)
	for i := 1; i <= int(count); i++ {
		port := startPort + uint16(i-1)
		dir := fmt.Sprintf("%s_%d", template, port)
		dir = strings.ReplaceAll(strings.ToLower(dir), " ", "_")
		out = append(out, Server{
			Index:     uint8(i),
			Port:      port,
			Directory: dir,
			Label:     fmt.Sprintf("%s %d", template, i),
		})
	}
	return out
}

// Under rebases every server directory onto root.
func Under(root string, servers []Server) []Server {
	if root == "" {
		return servers
	}
	out := make([]Server, len(servers))
	for i, s := range servers {
		s.Directory = filepath.Join(root, s.Directory)
		out[i] = s
	}
	return out
}
