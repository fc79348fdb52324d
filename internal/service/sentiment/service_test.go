package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
)

type scriptedModel struct {
	reply string
	err   error
	calls int
}

func (m *scriptedModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestPolarityUsesClassifier(t *testing.T) {
	fake := &scriptedModel{reply: "Sure! {\"polarity\": -0.8, \"reason\": \"user sounds hopeless\"}"}
	svc, err := NewService(context.Background(), fake, Config{Enabled: true})
	require.NoError(t, err)
	require.True(t, svc.Enabled())

	got := svc.Polarity(context.Background(), "everything is going wrong")
	assert.InDelta(t, -0.8, got, 1e-9)
	assert.Equal(t, 1, fake.calls)
}

func TestPolarityClampsClassifierOutput(t *testing.T) {
	svc, err := NewService(context.Background(), &scriptedModel{reply: `{"polarity": 3}`}, Config{Enabled: true})
	require.NoError(t, err)

	assert.Equal(t, 1.0, svc.Polarity(context.Background(), "yay"))
}

func TestPolarityFallsBackOnClassifierFailure(t *testing.T) {
	cases := map[string]*scriptedModel{
		"error":        {err: errors.New("provider down")},
		"not json":     {reply: "very negative"},
		"no polarity":  {reply: `{"reason": "n/a"}`},
		"blank answer": {reply: "   "},
	}

	for name, fake := range cases {
		t.Run(name, func(t *testing.T) {
			svc, err := NewService(context.Background(), fake, Config{Enabled: true})
			require.NoError(t, err)

			got := svc.Polarity(context.Background(), "I feel so sad and hopeless")
			assert.Less(t, got, -0.5)
		})
	}
}

func TestDisabledServiceUsesVader(t *testing.T) {
	fake := &scriptedModel{reply: `{"polarity": 0.9}`}
	svc, err := NewService(context.Background(), fake, Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, svc.Enabled())
	got := svc.Polarity(context.Background(), "I am not happy")
	assert.Negative(t, got)
	assert.Greater(t, got, -0.5)
	assert.Zero(t, fake.calls)

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
	assert.Equal(t, -1.0, nilSvc.Polarity(context.Background(), "I want to die"))
}

func TestSelectPersonality(t *testing.T) {
	svc, err := NewService(context.Background(), nil, Config{Enabled: true})
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, personality.Supportive, svc.SelectPersonality(ctx, "I feel so sad and hopeless", personality.Funny))
	assert.Equal(t, personality.Funny, svc.SelectPersonality(ctx, "tell me a joke", personality.Funny))
	assert.Equal(t, personality.Personality("Zebra"), svc.SelectPersonality(ctx, "hello", personality.Personality("Zebra")))
	// mildly negative, above the threshold
	assert.Equal(t, personality.Professional, svc.SelectPersonality(ctx, "I am not happy", personality.Professional))
}
