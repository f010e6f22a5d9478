package fill

import (
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/extract"
)

// canonicalAliases lists the page labels each canonical key is known by.
var canonicalAliases = map[string][]string{
	"name":    {"姓名", "全名", "用户名"},
	"phone":   {"电话", "手机", "手机号", "手机号码", "联系电话", "mobile", "tel", "telephone"},
	"email":   {"邮箱", "电子邮件", "邮件", "mail", "e-mail"},
	"address": {"地址", "详细地址", "收货地址"},
}

// aliasMap resolves a label or type name to a key of the result.
type aliasMap map[string]string

func newAliasMap(result extract.Result) aliasMap {
	m := aliasMap{}
	for _, key := range result.Keys() {
		m[strings.ToLower(key)] = key
	}
	for canonical, aliases := range canonicalAliases {
		group := append([]string{canonical}, aliases...)
		key, ok := firstPresent(m, group)
		if !ok {
			continue
		}
		for _, alias := range group {
			if _, taken := m[strings.ToLower(alias)]; !taken {
				m[strings.ToLower(alias)] = key
			}
		}
	}
	return m
}

func firstPresent(m aliasMap, names []string) (string, bool) {
	for _, n := range names {
		if key, ok := m[strings.ToLower(n)]; ok {
			return key, true
		}
	}
	return "", false
}

func (m aliasMap) lookup(label string) (string, bool) {
	key, ok := m[strings.ToLower(strings.TrimSpace(label))]
	return key, ok
}
