package ai

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeModel is a scripted model.BaseChatModel.
type fakeModel struct {
	mu sync.Mutex

	chunks      []string
	streamErr   error
	recvErr     error
	reader      *schema.StreamReader[*schema.Message]
	generated   *schema.Message
	generateErr error
	panicWith   any

	inputs  [][]*schema.Message
	options []*model.Options
}

func (f *fakeModel) record(input []*schema.Message, opts []model.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	f.options = append(f.options, model.GetCommonOptions(&model.Options{}, opts...))
}

func (f *fakeModel) lastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

func (f *fakeModel) lastOptions() *model.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.options) == 0 {
		return nil
	}
	return f.options[len(f.options)-1]
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.record(input, opts)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generated, nil
}

func (f *fakeModel) Stream(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input, opts)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.reader != nil {
		return f.reader, nil
	}

	sr, sw := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, chunk := range f.chunks {
			sw.Send(schema.AssistantMessage(chunk, nil), nil)
		}
		if f.recvErr != nil {
			sw.Send(nil, f.recvErr)
		}
	}()
	return sr, nil
}
