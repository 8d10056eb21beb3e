package pitch

import (
	"fmt"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/service"
)

const (
	msgWelcome = "🚀 *Welcome to Sparktoship Proposal Generator\\!*\n\n" +
		"Available commands:\n\n" +
		"📝 `/pitch` — Start creating a new proposal \\(guided\\)\n" +
		"📋 `/proposals` — View all generated proposals\n" +
		"❌ `/cancel` — Cancel current pitch session\n" +
		"🧠 `/funfact` — Get today's fun fact\n" +
		"🔥 `/aipulse` — Get the AI tech pulse\n\n" +
		"_You can also use the quick format:_\n" +
		"`/pitch https://example\\.com Project Name`"

	msgAskClientInfo = "📝 *Let's create a proposal\\!*\n\n" +
		"What's the *client name*?\n" +
		"Also share their *website URL* if they have one\\.\n\n" +
		"_Example:_ `Acme Corp https://acme\\.com`\n" +
		"_No website:_ `Acme Corp skip`"

	msgMissingClientName = "⚠️ Please provide at least the *client name*\\.\n\n" +
		"_Example:_ `Acme Corp https://acme\\.com`\n" +
		"_No website:_ `Acme Corp skip`"

	msgAskCurrency = "✅ Got it\\!\n\n" +
		"What *currency* should the proposal use for pricing?\n\n" +
		"💰 Type `INR` for Indian Rupees \\(₹\\)\n" +
		"💵 Type `USD` for US Dollars \\(\\$\\)"

	msgUnknownCurrency = "⚠️ Please type *INR* or *USD*"

	msgNotAURL = "⚠️ That doesn't look like a URL\\.\n\n" +
		"📄 *Upload a file* \\(\\.txt, \\.md, \\.pdf\\)\n" +
		"🔗 *Share a public link* to the document\n" +
		"⏭ Type `skip` to proceed without it"

	msgFileTooLarge = "⚠️ File too large. Maximum size is 5MB.\nType *skip* to proceed without it."

	msgUploadOutsideSession = "📎 To upload a requirements document, first start a pitch session with /pitch"

	msgCancelled        = "❌ Pitch session cancelled."
	msgCancelledCommand = "❌ Pitch session cancelled. Send /pitch to start a new one."
	msgNothingToCancel  = "No active pitch session to cancel."

	msgSessionUnavailable = "⚠️ Could not reach your pitch session right now. Please try again in a moment."
	msgSessionEnded       = "⚠️ Your pitch session has ended. Send /pitch to start a new one."

	msgGenerating     = "⏳ Generating your proposal... Please wait."
	msgFetchingURL    = "🔗 Fetching document from URL..."
	msgGenerateFailed = "❌ Error generating proposal. Please try again later."
	msgContentMissing = "⚠️ AI content was unavailable, so generic sections were used."
)

func markdownV2(text string) service.OutgoingText {
	return service.OutgoingText{Text: text, ParseMode: service.ParseModeMarkdownV2}
}

func markdown(text string) service.OutgoingText {
	return service.OutgoingText{Text: text, ParseMode: service.ParseModeMarkdown}
}

func plain(text string) service.OutgoingText {
	return service.OutgoingText{Text: text}
}

// WelcomeMessage /start 与 /help 的回复
func WelcomeMessage() service.OutgoingText {
	return markdownV2(msgWelcome)
}

func clientInfoAccepted(s entity.Session) service.OutgoingText {
	urlAck := " (no website)"
	if s.ClientURL != "" {
		urlAck = fmt.Sprintf(" (%s)", s.ClientURL)
	}
	return markdownV2(fmt.Sprintf(
		"✅ Client: *%s*%s\n\n"+
			"Now describe the *project requirement* in brief \\(100 words or less\\)\\.\n\n"+
			"_Example: Need a cloud migration for legacy ERP to AWS with CI/CD pipeline\\._",
		service.EscapeMarkdownV2(s.ClientName), service.EscapeMarkdownV2(urlAck),
	))
}

func currencyAccepted(s entity.Session) service.OutgoingText {
	return markdownV2(fmt.Sprintf(
		"✅ Currency: *%s*\n\n"+
			"What is the estimated *scale* of this project?\n\n"+
			"🌱 `Small` \\(MVP, simple site/app\\)\n"+
			"🚀 `Medium` \\(Standard full\\-stack solution\\)\n"+
			"🏢 `High` \\(Enterprise, complex architecture\\)",
		service.EscapeMarkdownV2(s.Currency.Label()),
	))
}

func scaleAccepted(s entity.Session) service.OutgoingText {
	return markdownV2(fmt.Sprintf(
		"✅ Scale: *%s*\n\n"+
			"Do you have a *detailed requirement document*?\n\n"+
			"📄 *Upload a file* \\(\\.txt, \\.md, \\.pdf\\)\n"+
			"🔗 *Share a link* \\(Google Drive, Dropbox, etc\\.\\)\n"+
			"⏭ Type `skip` to proceed with just the brief\n\n"+
			"_This helps generate a more accurate proposal\\._",
		service.EscapeMarkdownV2(string(s.Scale)),
	))
}

func unsupportedFile(ext string) service.OutgoingText {
	return markdown(fmt.Sprintf(
		"⚠️ Unsupported file type: `%s`\n"+
			"Please upload a *.txt*, *.md*, or *.pdf* file.\n"+
			"Or type *skip* to proceed without a detailed document.",
		ext,
	))
}

func processingUpload(fileName string) service.OutgoingText {
	return markdown(fmt.Sprintf("📄 Processing `%s`...", fileName))
}

func uploadExtracted(fileName string, words int) service.OutgoingText {
	return markdownV2(fmt.Sprintf(
		"✅ Extracted *%d words* from `%s`\n\n⏳ Generating your proposal now\\.\\.\\. Please wait\\.",
		words, service.EscapeMarkdownV2(fileName),
	))
}

func urlExtracted(words int) service.OutgoingText {
	return markdown(fmt.Sprintf(
		"✅ Extracted *%d words* from the document.\n\n⏳ Generating your proposal now... Please wait.",
		words,
	))
}

func uploadFailed(msg string) service.OutgoingText {
	return markdown(fmt.Sprintf("⚠️ %s\nType *skip* to proceed without the document.", msg))
}

func urlFailed(msg string) service.OutgoingText {
	return markdown(fmt.Sprintf(
		"⚠️ %s\n\nYou can try another link, upload a file, or type *skip* to proceed.", msg,
	))
}

func analyzing(clientURL string) service.OutgoingText {
	return plain(fmt.Sprintf("⏳ Analyzing %s for proposal... Please wait.", clientURL))
}

// ResultCaption 提案完成通知
func ResultCaption(result *entity.ProposalResult, baseURL string) string {
	caption := fmt.Sprintf(
		"✅ Proposal ready for *%s*\\!\n\n📌 Project: *%s*\n🔗 View: %s",
		service.EscapeMarkdownV2(result.Client.Name),
		service.EscapeMarkdownV2(result.ProjectName),
		service.EscapeMarkdownV2(baseURL+result.ProposalURL),
	)
	if result.Content == nil {
		caption += "\n\n" + service.EscapeMarkdownV2(msgContentMissing)
	}
	return caption
}
