package voltalis

import "context"

type ProgramType string

const (
	ProgramTypeDefault ProgramType = "DEFAULT"
	ProgramTypeUser    ProgramType = "USER"
)

// Program is a read-through view of a user program or quick setting held by a Client.
type Program struct {
	client *Client
	id     int
}

func (p *Program) state() programState {
	p.client.mutex.RLock()
	defer p.client.mutex.RUnlock()

	if state, ok := p.client.programs[p.id]; ok {
		return *state
	}

	return programState{}
}

// Update re-reads the program. Quick settings are only listed as a whole, so updating
// one of them refreshes all of them.
func (p *Program) Update(ctx context.Context) error {
	if p.Type() == ProgramTypeUser {
		return p.client.RefreshUserProgram(ctx, p.id)
	}

	return p.client.RefreshDefaultPrograms(ctx)
}

func (p *Program) ID() int {
	return p.id
}

func (p *Program) Name() string {
	return p.state().data.Name
}

func (p *Program) IsEnabled() bool {
	return p.state().data.Enabled
}

func (p *Program) Type() ProgramType {
	return p.state().programType
}

// SetEnabled switches the program through the endpoint matching its type.
func (p *Program) SetEnabled(ctx context.Context, enabled bool) error {
	state := p.state()
	if state.programType == ProgramTypeUser {
		return p.client.SetUserProgramState(ctx, p.id, state.data.Name, enabled)
	}

	return p.client.SetDefaultProgramState(ctx, p.id, enabled)
}
