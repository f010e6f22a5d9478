package formfill

import "github.com/a3tai/mcp-form-filler/internal/fields"

// Info describes the server for the server_info tool.
func (s *Service) Info(serverName, version string, tools []ToolInfo) ServerInfo {
	types := make([]string, 0, len(fields.PriorityOrder()))
	for _, t := range fields.PriorityOrder() {
		types = append(types, t.String())
	}
	if tools == nil {
		tools = []ToolInfo{}
	}
	return ServerInfo{
		ServerName:     serverName,
		Version:        version,
		Directory:      s.deps.Files.Base(),
		MaxFileSize:    s.deps.Files.MaxFileSize(),
		RemoteEnabled:  s.deps.Resolver.RemoteConfigured(),
		BrowserEnabled: s.BrowserEnabled(),
		FieldTypes:     types,
		Tools:          tools,
	}
}
