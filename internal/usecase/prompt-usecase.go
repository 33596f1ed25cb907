package usecase

import (
	"fmt"
	"strings"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/local"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/tokens"
)

const directivesTemplate = `You are %[1]s, a specialised assistant giving expert guidance on Iran's National Building Regulations (Mabhath) and facade engineering. Answer from official standards first and from the supplementary technical documents of your knowledge base second. You MUST respond ONLY in %[2]s.

**Core Directives:**
1.  **Prioritize Sources STRICTLY:** Official national standards (Mabhath 1-23, Publication 714) > Knowledge Base Documents > General engineering knowledge > Web Search Results. Official standards are the final authority.
2.  **Cite Rigorously:** Cite every sourced statement immediately, with the regulation number for standards, the document name and section for Knowledge Base Documents, and the source and title for web results. Mark general knowledge as such. Never name the underlying database.
3.  **Resolve Contradictions:** When sources disagree, follow the higher priority source, state the contradiction explicitly and say which source governs.
4.  **Be Thorough:** Explain context, purpose and implications. For calculations, cite the formula, define variables, show a worked example with units and state that it is an example only.
5.  **Ask When Unclear:** Ask a specific clarifying question if the query is ambiguous.
6.  **State Confidence:** Give a confidence level (low, medium, high) and justify it when it is not high.`

const finalInstruction = `**Final Output Instruction:**
Generate ONLY the final, well-cited answer for the user following all directives above. Do NOT output your internal reasoning, any self-review, or any remark about how or whether the knowledge base or the web was searched.`

// PromptInput is everything the assembler turns into a single prompt.
type PromptInput struct {
	Query     string
	History   []model.HistoryLine
	Retrieval model.Retrieval
	Profile   *model.UserInfo
}

// PromptAssembler renders PromptInput in a fixed section order. The same input
// always yields the same bytes.
type PromptAssembler struct {
	cfg      config.Prompt
	language local.Language
	counter  tokens.Counter
}

func NewPromptAssembler(cfg config.Prompt, counter tokens.Counter) *PromptAssembler {
	if counter == nil {
		counter = tokens.Estimator{}
	}
	if cfg.SnippetRunes <= 0 {
		cfg.SnippetRunes = 200
	}
	return &PromptAssembler{
		cfg:      cfg,
		language: local.ParseLanguage(cfg.Locale),
		counter:  counter,
	}
}

// Assemble renders the prompt and, when it exceeds the token budget, drops the
// oldest history turns first, then the lowest ranked web results, then the
// lowest ranked knowledge base documents. The query is never cut.
func (p *PromptAssembler) Assemble(in PromptInput) string {
	history := in.History
	web := cloneProviderResults(in.Retrieval.Web)
	vector := in.Retrieval.Vector

	prompt := p.render(in.Query, history, web, vector, in.Retrieval.VectorStatus, in.Profile)
	for p.cfg.MaxTokens > 0 && p.counter.Count(prompt) > p.cfg.MaxTokens {
		switch {
		case len(history) > 0:
			history = history[1:]
		case dropLastWebResult(web):
		case len(vector) > 0:
			vector = vector[:len(vector)-1]
		default:
			return prompt
		}
		prompt = p.render(in.Query, history, web, vector, in.Retrieval.VectorStatus, in.Profile)
	}
	return prompt
}

func (p *PromptAssembler) render(
	query string,
	history []model.HistoryLine,
	web []model.ProviderResults,
	vector []model.VectorDocument,
	status model.VectorStatus,
	profile *model.UserInfo,
) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf(directivesTemplate, p.cfg.AssistantName, p.responseLanguage()))
	b.WriteString("\n\n**Input Data:**\n\n")
	fmt.Fprintf(&b, "*   **User Information:** %s\n", p.identity(profile))
	fmt.Fprintf(&b, "*   **Previous Conversation History (Oldest to Newest):**\n    %s\n", p.history(history))
	fmt.Fprintf(&b, "*   **Current User Query:** %s\n", query)
	fmt.Fprintf(
		&b, "*   **Knowledge Base Documents (HIGH PRIORITY after official standards):**\n    %s\n    *%s*\n",
		p.vectorBlock(vector, status), local.VectorCitation.Text(p.language),
	)
	fmt.Fprintf(
		&b, "*   **Web Search Results (Supplementary - LOWER PRIORITY):**\n    %s\n    *%s*\n\n",
		p.webBlock(web), local.WebCitation.Text(p.language),
	)
	b.WriteString(finalInstruction)
	return b.String()
}

func (p *PromptAssembler) responseLanguage() string {
	if p.language == local.Eng {
		return "ENGLISH"
	}
	return "PERSIAN (Farsi)"
}

func (p *PromptAssembler) identity(profile *model.UserInfo) string {
	profile = profile.Normalize()
	switch {
	case profile == nil:
		return local.DefaultUser.Text(p.language)
	case profile.Name != "":
		return profile.Name
	default:
		return local.UserWithContact.Format(p.language, profile.Contact)
	}
}

func (p *PromptAssembler) history(history []model.HistoryLine) string {
	if len(history) == 0 {
		return local.NoHistory.Text(p.language)
	}
	lines := make([]string, 0, len(history))
	for _, line := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", line.Role, line.Content))
	}
	return strings.Join(lines, "\n")
}

func (p *PromptAssembler) vectorBlock(docs []model.VectorDocument, status model.VectorStatus) string {
	switch status {
	case model.VectorSkipped:
		return local.VectorNotSearched.Text(p.language)
	case model.VectorEmbeddingFailed:
		return local.VectorEmbeddingFailed.Text(p.language)
	case model.VectorSearchFailed:
		return local.VectorSearchFailed.Text(p.language)
	}
	if len(docs) == 0 {
		return local.VectorNotFound.Text(p.language)
	}

	lines := make([]string, 0, len(docs)+1)
	lines = append(lines, local.VectorResultsHeader.Text(p.language))
	for i, doc := range docs {
		content, _ := tokens.Truncate(doc.Content, p.cfg.SnippetRunes)
		lines = append(
			lines, local.VectorDocLine.Format(
				p.language,
				i+1,
				orUnknown(doc.Metadata.DocName),
				orUnknown(doc.Metadata.References),
				doc.Similarity*100,
				orUnknown(content)+"...",
			),
		)
	}
	return strings.Join(lines, "\n")
}

func (p *PromptAssembler) webBlock(web []model.ProviderResults) string {
	groups := make([]string, 0, len(web))
	for _, provider := range web {
		if len(provider.Results) == 0 {
			continue
		}
		lines := make([]string, 0, len(provider.Results)+1)
		lines = append(lines, local.WebProviderHeader.Format(p.language, provider.Provider))
		for i, r := range provider.Results {
			description := r.Description
			if description == "" {
				description = "_"
			}
			lines = append(lines, local.WebResultLine.Format(p.language, i+1, r.Title, description, r.Link))
		}
		groups = append(groups, strings.Join(lines, "\n"))
	}
	if len(groups) == 0 {
		return local.WebNotFound.Text(p.language)
	}
	return strings.Join(groups, "\n\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func cloneProviderResults(web []model.ProviderResults) []model.ProviderResults {
	out := make([]model.ProviderResults, len(web))
	copy(out, web)
	return out
}

// dropLastWebResult removes the lowest ranked result of the last provider that
// still has one.
func dropLastWebResult(web []model.ProviderResults) bool {
	for i := len(web) - 1; i >= 0; i-- {
		if n := len(web[i].Results); n > 0 {
			web[i].Results = web[i].Results[:n-1]
			return true
		}
	}
	return false
}
