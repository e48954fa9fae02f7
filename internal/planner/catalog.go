package planner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCatalog - YAML 파일에서 카탈로그 override 로드
//
// 예시:
//
//	disk-pressure:
//	  diagnostics: ["df -h /", "du -sh /var/log"]
//	  fallback:
//	    command: "journalctl --vacuum-size=200M"
//	    reasoning: "Trim journal to free space."
//
// 키는 알려진 category여야 하며, 모르는 키는 에러
func LoadCatalog(path string) (map[Category]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read planner catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (map[Category]Entry, error) {
	var doc map[string]Entry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse planner catalog: %w", err)
	}

	out := make(map[Category]Entry, len(doc))
	for key, entry := range doc {
		c, err := ParseCategory(key)
		if err != nil {
			return nil, err
		}
		out[c] = entry
	}
	return out, nil
}
