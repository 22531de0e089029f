// Package adapters はトークン機能のパラメータストア実装を提供します。
package adapters

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/usecase"
)

// SSM の GetParameters は1回に10件まで
const ssmBatchSize = 10

// ssmStore は AWS SSM Parameter Store を使う ParameterStore です。値は SecureString として保存します。
type ssmStore struct {
	client ssmiface.SSMAPI
}

var _ usecase.ParameterStore = (*ssmStore)(nil)

func NewSSMStore(client ssmiface.SSMAPI) *ssmStore {
	return &ssmStore{client: client}
}

func (s *ssmStore) GetParameters(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for start := 0; start < len(names); start += ssmBatchSize {
		end := min(start+ssmBatchSize, len(names))
		res, err := s.client.GetParametersWithContext(ctx, &ssm.GetParametersInput{
			Names:          aws.StringSlice(names[start:end]),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("ssm get parameters: %w", err)
		}
		// InvalidParameters (存在しないキー) は結果に含めない
		for _, p := range res.Parameters {
			out[aws.StringValue(p.Name)] = aws.StringValue(p.Value)
		}
	}
	return out, nil
}

func (s *ssmStore) PutParameter(ctx context.Context, name, value string) error {
	_, err := s.client.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      aws.String(ssm.ParameterTypeSecureString),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("ssm put parameter %s: %w", name, err)
	}
	return nil
}
