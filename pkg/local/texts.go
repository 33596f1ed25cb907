package local

// Prompt sentinels. An empty retrieval section is always replaced by one of
// these so the model never sees a blank context block.
var (
	NoHistory = NewSet(
		"هیچ تاریخچه گفتگوی قبلی وجود ندارد.",
		NewTrans(Eng, "There is no previous conversation history."),
	)
	WebNotFound = NewSet(
		"نتایج وب یافت نشد.",
		NewTrans(Eng, "No web results were found."),
	)
	VectorNotFound = NewSet(
		"سند مرتبطی در پایگاه داده یافت نشد.",
		NewTrans(Eng, "No related document was found in the knowledge base."),
	)
	VectorNotSearched = NewSet(
		"پایگاه داده جستجو نشد یا نتیجه‌ای نداشت.",
		NewTrans(Eng, "The knowledge base was not searched or returned nothing."),
	)
	VectorEmbeddingFailed = NewSet(
		"خطا در پردازش جستجوی پایگاه داده.",
		NewTrans(Eng, "The knowledge base search could not be processed."),
	)
	VectorSearchFailed = NewSet(
		"خطا در جستجوی پایگاه داده.",
		NewTrans(Eng, "The knowledge base search failed."),
	)
	VectorResultsHeader = NewSet(
		"نتایج پایگاه داده:",
		NewTrans(Eng, "Knowledge base results:"),
	)
	VectorDocLine = NewSet(
		"%d. **کتاب:** %s | **بخش:** %s | **شباهت:** %.1f%%\n   **متن:** %s",
		NewTrans(Eng, "%d. **Document:** %s | **Section:** %s | **Similarity:** %.1f%%\n   **Text:** %s"),
	)
	WebProviderHeader = NewSet(
		"*نتایج %s:*",
		NewTrans(Eng, "*%s results:*"),
	)
	WebResultLine = NewSet(
		"%d. **%s**: %s [لینک](%s)",
		NewTrans(Eng, "%d. **%s**: %s [link](%s)"),
	)
	VectorCitation = NewSet(
		"برای ارجاع از این قالب استفاده کن: طبق [نام کتاب یا سند], بخش/رفرنس [شماره/عنوان بخش]...",
		NewTrans(Eng, "Cite using the format: According to [document name], section/reference [number/title]..."),
	)
	WebCitation = NewSet(
		"برای ارجاع از این قالب استفاده کن: بر اساس نتیجه جستجوی وب از [منبع] با عنوان '[عنوان]'...",
		NewTrans(Eng, "Cite using the format: According to a web result from [source] titled '[title]'..."),
	)
	DefaultUser = NewSet(
		"کاربر گرامی",
		NewTrans(Eng, "Dear user"),
	)
	UserWithContact = NewSet(
		"کاربر با شماره %s",
		NewTrans(Eng, "User with number %s"),
	)
)

// Generation notices used when the model returned no usable text.
var (
	ResponseBlockedSafety = NewSet(
		"پاسخ به دلیل محدودیت ایمنی مسدود شد.",
		NewTrans(Eng, "The answer was blocked by safety filters."),
	)
	ResponseBlockedRecitation = NewSet(
		"پاسخ به دلیل تکرار محتوای محافظت شده مسدود شد.",
		NewTrans(Eng, "The answer was blocked for reciting protected content."),
	)
	ResponseIncomplete = NewSet(
		"پاسخ کامل نشد.",
		NewTrans(Eng, "The answer was not completed."),
	)
	ResponseTruncatedMarker = NewSet(
		"[محدودیت طول]",
		NewTrans(Eng, "[length limit]"),
	)
	ResponseEmpty = NewSet(
		"پاسخ خالی دریافت شد.",
		NewTrans(Eng, "An empty answer was received."),
	)
)

// User-facing error strings returned by the HTTP API.
var (
	ErrorInvalidRequest = NewSet(
		"قالب درخواست نامعتبر است.",
		NewTrans(Eng, "Invalid request format."),
	)
	ErrorInvalidText = NewSet(
		"متن پیام نامعتبر است.",
		NewTrans(Eng, "Invalid message text provided."),
	)
	ErrorChat = NewSet(
		"پردازش چت با خطا مواجه شد: %s",
		NewTrans(Eng, "Chat processing failed: %s"),
	)
	ErrorEmptySearch = NewSet(
		"لطفا عبارتی برای جستجو وارد کنید",
		NewTrans(Eng, "Please enter a search phrase."),
	)
	ErrorEmbedding = NewSet(
		"خطا در تولید بردار جستجو: %s",
		NewTrans(Eng, "Failed to build the search vector: %s"),
	)
	ErrorVectorSearch = NewSet(
		"جستجوی برداری با خطا مواجه شد: %s",
		NewTrans(Eng, "Vector search failed: %s"),
	)
	ErrorSessionRequired = NewSet(
		"شناسه جلسه الزامی است.",
		NewTrans(Eng, "Session ID is required."),
	)
	ErrorHistoryNotFound = NewSet(
		"تاریخچه گفتگو یافت نشد یا خالی است.",
		NewTrans(Eng, "Chat history not found or empty."),
	)
	ErrorHistory = NewSet(
		"دریافت تاریخچه گفتگو با خطا مواجه شد.",
		NewTrans(Eng, "Failed to retrieve chat history."),
	)
)
