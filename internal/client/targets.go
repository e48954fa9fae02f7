// CloudWatch Alarm dimension -> EC2 instance 목록 변환
//
// 우선순위:
//   - AutoScalingGroupName: InService 상태 instance
//   - TargetGroup: healthy가 아닌 i- 대상 (ARN은 alarm의 Region/계정으로 구성)
//   - InstanceId: 그대로 사용

package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/model"
)

var ErrNoAccountID = errors.New("could not determine aws account id for target group lookup")

type autoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

type targetHealthAPI interface {
	DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
}

type AWSTargetResolver struct {
	asg    autoScalingAPI
	elb    targetHealthAPI
	region string
}

func NewAWSTargetResolver(ctx context.Context, cfg config.ExecutorConfig) (*AWSTargetResolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}
	return newAWSTargetResolver(autoscaling.NewFromConfig(awsCfg), elbv2.NewFromConfig(awsCfg), cfg.Region), nil
}

func newAWSTargetResolver(asg autoScalingAPI, elb targetHealthAPI, region string) *AWSTargetResolver {
	return &AWSTargetResolver{asg: asg, elb: elb, region: region}
}

func (r *AWSTargetResolver) Resolve(ctx context.Context, alarm model.CloudWatchAlarm) ([]string, error) {
	if name := alarm.Dimension("AutoScalingGroupName"); name != "" {
		return r.autoScalingGroup(ctx, name)
	}
	if suffix := alarm.Dimension("TargetGroup"); suffix != "" {
		return r.targetGroup(ctx, alarm, suffix)
	}
	if id := alarm.Dimension("InstanceId"); id != "" {
		return []string{id}, nil
	}
	return nil, nil
}

func (r *AWSTargetResolver) autoScalingGroup(ctx context.Context, name string) ([]string, error) {
	out, err := r.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe auto scaling group %s: %w", name, err)
	}
	if len(out.AutoScalingGroups) == 0 {
		return nil, nil
	}

	var ids []string
	for _, inst := range out.AutoScalingGroups[0].Instances {
		if inst.LifecycleState == astypes.LifecycleStateInService {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	log.Printf("[Targets] ASG %s resolved to %v", name, ids)
	return ids, nil
}

// targetGroup - suffix 예: targetgroup/sre-demo-tg/42f85d5ede20f6d3
func (r *AWSTargetResolver) targetGroup(ctx context.Context, alarm model.CloudWatchAlarm, suffix string) ([]string, error) {
	account := alarm.AccountID()
	if account == "" {
		return nil, ErrNoAccountID
	}
	region := alarm.RegionCode()
	if region == "" {
		region = r.region
	}
	arn := fmt.Sprintf("arn:aws:elasticloadbalancing:%s:%s:%s", region, account, suffix)

	out, err := r.elb.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{TargetGroupArn: aws.String(arn)})
	if err != nil {
		return nil, fmt.Errorf("failed to describe target health %s: %w", arn, err)
	}

	var ids []string
	for _, d := range out.TargetHealthDescriptions {
		if d.TargetHealth != nil && d.TargetHealth.State == elbtypes.TargetHealthStateEnumHealthy {
			continue
		}
		if d.Target == nil {
			continue
		}
		if id := aws.ToString(d.Target.Id); strings.HasPrefix(id, "i-") {
			ids = append(ids, id)
		}
	}
	log.Printf("[Targets] Target group %s unhealthy targets %v", suffix, ids)
	return ids, nil
}
