// AWS SSM Run Command 기반 원격 실행
//
// SendCommand(AWS-RunShellScript) 후 GetCommandInvocation을 주기적으로 조회
// 호출자의 ctx가 끝나면 마지막으로 받은 출력과 ctx 에러를 반환 (원격 명령은 계속 실행될 수 있음)

package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/model"
)

const runShellScript = "AWS-RunShellScript"

type ssmAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

type SSMExecutor struct {
	api          ssmAPI
	pollInterval time.Duration
}

func NewSSMExecutor(ctx context.Context, cfg config.ExecutorConfig) (*SSMExecutor, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}
	return newSSMExecutor(ssm.NewFromConfig(awsCfg), cfg.PollInterval), nil
}

func newSSMExecutor(api ssmAPI, pollInterval time.Duration) *SSMExecutor {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &SSMExecutor{api: api, pollInterval: pollInterval}
}

func (e *SSMExecutor) Run(ctx context.Context, req model.ExecRequest) (*model.ExecResult, error) {
	params := map[string][]string{"commands": req.Commands}
	if secs := int(req.Budget.Seconds()); secs > 0 {
		params["executionTimeout"] = []string{strconv.Itoa(secs)}
	}

	sent, err := e.api.SendCommand(ctx, &ssm.SendCommandInput{
		InstanceIds:  []string{req.TargetID},
		DocumentName: aws.String(runShellScript),
		Parameters:   params,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &model.ExecResult{}, ctxErr
		}
		return nil, fmt.Errorf("failed to send command to %s: %w", req.TargetID, err)
	}
	commandID := aws.ToString(sent.Command.CommandId)
	log.Printf("[SSM] Command sent (target=%s, command_id=%s)", req.TargetID, commandID)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	partial := &model.ExecResult{}
	for {
		select {
		case <-ctx.Done():
			return partial, ctx.Err()
		case <-ticker.C:
		}

		inv, err := e.api.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
			CommandId:  aws.String(commandID),
			InstanceId: aws.String(req.TargetID),
		})
		var notYet *types.InvocationDoesNotExist
		switch {
		case errors.As(err, &notYet):
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return partial, ctxErr
			}
			log.Printf("[SSM] Error polling command (command_id=%s): %v", commandID, err)
			continue
		}

		partial.Output = invocationOutput(inv)
		switch inv.Status {
		case types.CommandInvocationStatusSuccess:
			return &model.ExecResult{Output: partial.Output, Succeeded: true}, nil
		case types.CommandInvocationStatusFailed,
			types.CommandInvocationStatusCancelled,
			types.CommandInvocationStatusTimedOut:
			return &model.ExecResult{
				Output: partial.Output,
				Error:  fmt.Sprintf("ssm command %s (exit code %d)", inv.Status, inv.ResponseCode),
			}, nil
		}
	}
}

// invocationOutput - stdout 우선, 없으면 stderr
func invocationOutput(inv *ssm.GetCommandInvocationOutput) string {
	if out := aws.ToString(inv.StandardOutputContent); out != "" {
		return out
	}
	return aws.ToString(inv.StandardErrorContent)
}
