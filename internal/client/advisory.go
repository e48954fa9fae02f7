// Advisory(AI) 공통: prompt 구성과 JSON 응답 파싱

package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kube-rca/remediator/internal/model"
)

func systemInstruction(logBucket string) string {
	return fmt.Sprintf("You are a Linux Sysadmin. The S3 bucket for log archival is '%s'. "+
		"Return ONLY a JSON object with keys 'reasoning' (brief explanation of why this command fixes the issue) "+
		"and 'command' (the bash command itself). No markdown, no explanations outside JSON.", logBucket)
}

func advisoryPrompt(req model.AdvisoryRequest) string {
	return fmt.Sprintf("Context:\n%s\n\nIssue: %s (%s) on %s\n\nProvide the specific remediation JSON.",
		req.Diagnostics, req.AlarmName, req.Category, req.TargetID)
}

// parseAdvice - 모델 응답에서 {reasoning, command} 추출 (```json 펜스 허용)
func parseAdvice(text string) (model.AdvisoryResponse, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var out model.AdvisoryResponse
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return model.AdvisoryResponse{}, fmt.Errorf("failed to parse advisory response: %w", err)
	}
	return out, nil
}
