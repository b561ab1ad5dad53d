// Package ignore 决定 scan 时哪些文件不参与解析
package ignore

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义规则文件，放在扫描根目录下
const FileName = ".f2pignore"

// defaultRules 总是生效
var defaultRules = []string{
	".f2p", // 历史库和报告目录
	".git",

	// 可能带凭据
	"config.yaml",
	".env",

	".DS_Store",
	"Thumbs.db",
	"*.tmp",
	"*.swp",
}

// Matcher 判断扫描根目录下的相对路径是否应跳过
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 编译默认规则，root 下存在 .f2pignore 时一并合并
func NewMatcher(root string) (*Matcher, error) {
	path := filepath.Join(root, FileName)

	if _, err := os.Stat(path); err != nil {
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(defaultRules...)}, nil
	}

	ignorer, err := gitignore.CompileIgnoreFileAndLines(path, defaultRules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignorer: ignorer}, nil
}

// Matches 报告 rel (相对 root，"/" 分隔) 是否被忽略
// 零值 Matcher 不忽略任何东西
func (m *Matcher) Matches(rel string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(filepath.ToSlash(rel))
}
