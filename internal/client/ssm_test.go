package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/kube-rca/remediator/internal/model"
)

type fakeSSM struct {
	mu          sync.Mutex
	sent        *ssm.SendCommandInput
	invocations []*ssm.GetCommandInvocationOutput
	calls       int
}

func (f *fakeSSM) SendCommand(_ context.Context, in *ssm.SendCommandInput, _ ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = in
	return &ssm.SendCommandOutput{Command: &types.Command{CommandId: aws.String("cmd-1")}}, nil
}

func (f *fakeSSM) GetCommandInvocation(_ context.Context, _ *ssm.GetCommandInvocationInput, _ ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return nil, &types.InvocationDoesNotExist{}
	}
	idx := f.calls - 2
	if idx >= len(f.invocations) {
		idx = len(f.invocations) - 1
	}
	return f.invocations[idx], nil
}

func TestSSMExecutorSuccess(t *testing.T) {
	api := &fakeSSM{invocations: []*ssm.GetCommandInvocationOutput{
		{Status: types.CommandInvocationStatusInProgress},
		{Status: types.CommandInvocationStatusSuccess, StandardOutputContent: aws.String("freed 2G")},
	}}
	exec := newSSMExecutor(api, time.Millisecond)

	res, err := exec.Run(context.Background(), model.ExecRequest{TargetID: "i-1", Commands: []string{"df -h /"}, Budget: time.Minute})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.Succeeded || res.Output != "freed 2G" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if aws.ToString(api.sent.DocumentName) != runShellScript || api.sent.Parameters["executionTimeout"][0] != "60" {
		t.Fatalf("unexpected send input: %+v", api.sent)
	}
}

func TestSSMExecutorFailure(t *testing.T) {
	api := &fakeSSM{invocations: []*ssm.GetCommandInvocationOutput{
		{Status: types.CommandInvocationStatusFailed, StandardErrorContent: aws.String("permission denied"), ResponseCode: 1},
	}}
	exec := newSSMExecutor(api, time.Millisecond)

	res, err := exec.Run(context.Background(), model.ExecRequest{TargetID: "i-1", Commands: []string{"systemctl restart nginx"}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Succeeded || res.Output != "permission denied" || res.Error == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSSMExecutorDeadlineReturnsPartial(t *testing.T) {
	api := &fakeSSM{invocations: []*ssm.GetCommandInvocationOutput{
		{Status: types.CommandInvocationStatusInProgress, StandardOutputContent: aws.String("archiving...")},
	}}
	exec := newSSMExecutor(api, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := exec.Run(ctx, model.ExecRequest{TargetID: "i-1", Commands: []string{"sleep 600"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if res == nil || res.Output != "archiving..." {
		t.Fatalf("expected partial output, got %+v", res)
	}
}
