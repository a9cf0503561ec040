// Package prompt assembles the outbound generation request: the fixed
// system instruction, the serialized prior turns (with inline media and
// re-serialized artifacts), the current artifact set, and the new user
// input, in that order.
package prompt

import (
	"errors"

	"github.com/firebase/genkit/go/ai"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/session"
)

// ErrMalformedInput indicates the attached image payload could not be
// decoded. The request is rejected before any external call.
var ErrMalformedInput = errors.New("malformed input")

// ImagePlaceholderText is used when an image is attached without any
// user text, so the generation call is never text-empty.
const ImagePlaceholderText = "image attached"

// refinePreamble introduces the synthetic assistant message that
// presents the current artifact set when the last assistant turn does
// not already carry it.
const refinePreamble = "Here is the current code to refine:"

// SystemInstruction constrains the model's output format and forbids
// environment-coupled constructs in generated code. The extractor
// depends on the fenced-block format this mandates.
const SystemInstruction = `You are a UI component generator. For every request, respond with:

1. A short explanation of what you built or changed.
2. The component source in a fenced block tagged ` + "```go" + `. Define exactly one top-level component (an exported function returning ui.Node) built from the provided kit: ui.E, ui.Text, ui.Attrs, ui.UseState, ui.UseEffect, ui.UseRef. Do not write import declarations, router or navigation hooks, or stylesheet imports; the runtime provides everything your component may use.
3. If styling is needed, a stylesheet in a fenced block tagged ` + "```css" + `.
4. If static markup is useful as a fallback, a fenced block tagged ` + "```html" + `.

When refining existing code, apply the requested change to the current code rather than starting over, and always return the complete updated source.`

// Input is everything the assembler needs for one generation call.
type Input struct {
	// History is the full prior turn sequence, oldest first. A trailing
	// pending placeholder must not be included.
	History []session.Turn

	// Current is the session's current artifact set; nil or empty when
	// nothing has been generated yet.
	Current *artifact.Set

	// Text is the new user input. May be empty only when ImageDataURI
	// is set.
	Text string

	// ImageDataURI optionally attaches an image as a data URI with an
	// embedded media type.
	ImageDataURI string
}

// Assemble builds the ordered message list for a multi-turn generation
// call. It fails with ErrMalformedInput before any external call when
// an image payload cannot be decoded.
func Assemble(in Input) ([]*ai.Message, error) {
	msgs := make([]*ai.Message, 0, len(in.History)+3)
	msgs = append(msgs, ai.NewSystemMessage(ai.NewTextPart(SystemInstruction)))

	lastAssistantHadArtifacts := false
	for i := range in.History {
		turn := &in.History[i]
		msg, err := turnMessage(turn)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		if turn.Role == session.RoleAssistant {
			lastAssistantHadArtifacts = turn.Artifacts != nil && !turn.Artifacts.Empty()
		}
	}

	// Present the current code once when the history doesn't already
	// end with it, so refinements are applied as deltas.
	if in.Current != nil && !in.Current.Empty() && !lastAssistantHadArtifacts {
		msgs = append(msgs, ai.NewModelMessage(
			ai.NewTextPart(refinePreamble+"\n\n"+in.Current.Serialize())))
	}

	userParts, err := userParts(in.Text, in.ImageDataURI)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, ai.NewUserMessage(userParts...))

	return msgs, nil
}

// turnMessage serializes one prior turn. Assistant turns that carry
// artifacts get them re-appended as fenced blocks so the model sees its
// own prior output verbatim.
func turnMessage(turn *session.Turn) (*ai.Message, error) {
	text := turn.Text
	if turn.Role == session.RoleAssistant {
		if turn.Artifacts != nil && !turn.Artifacts.Empty() {
			text += "\n\n" + turn.Artifacts.Serialize()
		}
		return ai.NewModelMessage(ai.NewTextPart(text)), nil
	}

	parts, err := userParts(text, turn.ImageRef)
	if err != nil {
		return nil, err
	}
	return ai.NewUserMessage(parts...), nil
}

// userParts builds the parts of a user message. The image part is
// omitted entirely when no image is attached; a malformed data URI is
// rejected rather than sent on.
func userParts(text, imageDataURI string) ([]*ai.Part, error) {
	if text == "" && imageDataURI != "" {
		text = ImagePlaceholderText
	}
	parts := []*ai.Part{ai.NewTextPart(text)}

	if imageDataURI != "" {
		mediaType, err := DecodeImageDataURI(imageDataURI)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ai.NewMediaPart(mediaType, imageDataURI))
	}
	return parts, nil
}
