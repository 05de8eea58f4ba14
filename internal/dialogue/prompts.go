package dialogue

import (
	"fmt"
	"strings"
	"text/template"
)

const imageGuidance = `The image_description should describe a still image to accompany your statement. ` +
	`The image should relate to the topic, not to the discussion setting or the participants. ` +
	`Avoid celebrities and public figures. The image generator applies a content filter, so avoid anything inappropriate or offensive. ` +
	`Do not name copyrighted works in image_description.`

var systemTemplates = template.Must(template.New("prompts").Parse(`
{{define "roundtable_participant"}}You are {{.Self.Name}}. You are participating in a roundtable discussion as a {{.Self.Role}} on the topic of {{.Topic}}. ` +
	`Your response should be a json object with the keys 'speaker', 'content', 'next_speaker', and 'image_description'. ` +
	`The speaker should be your name. next_speaker should be the name of the person who should speak next. The content should be your response. {{.Guidance}}{{end}}
{{define "roundtable_moderator"}}You are the moderator. You are moderating a roundtable discussion on the topic of {{.Topic}}. ` +
	`The participants are:{{range .Others}}
- {{.Name}} ({{.Role}}){{end}}
Your response should be a json object with the keys 'speaker', 'content', 'next_speaker', and 'image_description'. ` +
	`The speaker should be your name. next_speaker should be the name of the person you have decided should speak next. ` +
	`When you have decided the roundtable discussion is over, next_speaker should be '{{.End}}'. Each speaker will get to decide who speaks next. ` +
	`When you open the floor, you still have to pick a next_speaker. Only use '{{.End}}' when you are closing the discussion. ` +
	`Feel free to carry on for multiple rounds until the topic has been covered sufficiently. The content should be your response. {{.Guidance}}{{end}}
{{define "debate_moderator"}}You are the moderator. You are moderating the debate between {{.Proponent}} and {{.Opponent}} on {{.Topic}}. ` +
	`Your response should be a json object with the keys 'speaker', 'content', and 'image_description'. The speaker should be your name. {{.Guidance}}{{end}}
{{define "debate_proponent"}}You are {{.Self.Name}}. You are debating as a proponent of {{.Topic}}. Your opponent is {{.Opponent}}. ` +
	`Your response should be a json object with the keys 'speaker', 'content', and 'image_description'. The speaker should be your name. {{.Guidance}}{{end}}
{{define "debate_opponent"}}You are {{.Self.Name}}. You are debating as an opponent of {{.Topic}}. Your opponent is {{.Proponent}}. ` +
	`Your response should be a json object with the keys 'speaker', 'content', and 'image_description'. The speaker should be your name. {{.Guidance}}{{end}}
`))

// promptData feeds the system prompt templates.
type promptData struct {
	Topic     string
	Self      Participant
	Others    []Participant
	Proponent string
	Opponent  string
	End       string
	Guidance  string
}

// systemPrompt renders the named template and appends the JSON schema the
// reply must satisfy.
func systemPrompt(name string, data promptData, schemaDoc string) (string, error) {
	data.End = EndSentinel
	data.Guidance = imageGuidance
	var b strings.Builder
	if err := systemTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	if schemaDoc != "" {
		b.WriteString("\n\nThe JSON object must satisfy this JSON Schema:\n")
		b.WriteString(schemaDoc)
	}
	return b.String(), nil
}

const (
	roundtableOpening = "Introduce the roundtable discussion. Introduce all of the participants. " +
		"Kick off the conversation by asking a question directed towards one of the participants."
	roundtableClosing = "Time is nearly up. Thank the participants, summarize the discussion, and close it. " +
		"next_speaker must be '" + EndSentinel + "'."
	roundtableHandback = "%s suggested wrapping up. Decide whether the topic has been covered: " +
		"either close the discussion with next_speaker '" + EndSentinel + "' or pick someone to continue."
)
