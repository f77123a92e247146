package catalog

var defaultCategories = []Category{
	{ID: "interview", Name: "Interview Practice", Description: "Common interview questions and scenarios", Icon: "🎯"},
	{ID: "elevator-pitch", Name: "Elevator Pitch", Description: "Perfect your 30-second introduction", Icon: "🚀"},
	{ID: "presentation", Name: "Presentation Skills", Description: "Public speaking and presentation practice", Icon: "🎤"},
	{ID: "networking", Name: "Networking", Description: "Conversation starters and networking tips", Icon: "🤝"},
}

var defaultQuestions = []Question{
	// interview
	{ID: "tell-me-about-yourself", Question: "Tell me about yourself", AudioURL: "/audio/interview/tell-me-about-yourself.mp3", Duration: 120, Tips: "Focus on relevant experience and achievements", CategoryID: "interview"},
	{ID: "why-should-we-hire-you", Question: "Why should we hire you?", AudioURL: "/audio/interview/why-should-we-hire-you.mp3", Duration: 90, Tips: "Highlight unique value and specific examples", CategoryID: "interview"},
	{ID: "biggest-weakness", Question: "What is your biggest weakness?", AudioURL: "/audio/interview/biggest-weakness.mp3", Duration: 90, Tips: "Show self-awareness and growth mindset", CategoryID: "interview"},
	{ID: "where-do-you-see-yourself", Question: "Where do you see yourself in 5 years?", AudioURL: "/audio/interview/where-do-you-see-yourself.mp3", Duration: 90, Tips: "Align with company goals and show ambition", CategoryID: "interview"},

	// elevator-pitch
	{ID: "personal-intro", Question: "Introduce yourself professionally", AudioURL: "/audio/elevator-pitch/personal-intro.mp3", Duration: 30, Tips: "Include name, role, and key value proposition", CategoryID: "elevator-pitch"},
	{ID: "value-proposition", Question: "What value do you bring?", AudioURL: "/audio/elevator-pitch/value-proposition.mp3", Duration: 30, Tips: "Focus on benefits, not just features", CategoryID: "elevator-pitch"},
	{ID: "call-to-action", Question: "End with a clear call to action", AudioURL: "/audio/elevator-pitch/call-to-action.mp3", Duration: 30, Tips: "Make it easy for them to take next step", CategoryID: "elevator-pitch"},

	// presentation
	{ID: "opening-hook", Question: "Start with an engaging opening", AudioURL: "/audio/presentation/opening-hook.mp3", Duration: 60, Tips: "Use a story, question, or surprising fact", CategoryID: "presentation"},
	{ID: "key-points", Question: "Present your main points clearly", AudioURL: "/audio/presentation/key-points.mp3", Duration: 120, Tips: "Use clear structure and transitions", CategoryID: "presentation"},
	{ID: "strong-closing", Question: "End with impact", AudioURL: "/audio/presentation/strong-closing.mp3", Duration: 60, Tips: "Summarize key takeaways and next steps", CategoryID: "presentation"},

	// networking
	{ID: "ice-breaker", Question: "Break the ice naturally", AudioURL: "/audio/networking/ice-breaker.mp3", Duration: 60, Tips: "Find common ground or ask about their work", CategoryID: "networking"},
	{ID: "show-interest", Question: "Show genuine interest in their work", AudioURL: "/audio/networking/show-interest.mp3", Duration: 90, Tips: "Ask thoughtful questions about their role", CategoryID: "networking"},
	{ID: "share-value", Question: "Share how you can help them", AudioURL: "/audio/networking/share-value.mp3", Duration: 90, Tips: "Offer specific ways you can be valuable", CategoryID: "networking"},
}

var defaultTopics = []Topic{
	{
		ID:          "job-interview",
		Title:       "Job Interview",
		Description: "Practice answering common behavioural interview questions",
		Difficulty:  "intermediate",
		Context:     "You are interviewing for a mid-level role at a growing technology company.",
		Category:    "interview",
		Keywords:    []string{"experience", "team", "project", "role", "skills", "company", "challenge", "goal"},
	},
	{
		ID:          "salary-negotiation",
		Title:       "Salary Negotiation",
		Description: "Negotiate an offer confidently and professionally",
		Difficulty:  "advanced",
		Context:     "You have received an offer and want to discuss compensation.",
		Category:    "interview",
		Keywords:    []string{"salary", "offer", "compensation", "benefits", "market", "value", "range"},
	},
	{
		ID:          "elevator-pitch",
		Title:       "Elevator Pitch",
		Description: "Deliver a crisp introduction and answer follow-up questions",
		Difficulty:  "beginner",
		Context:     "You meet a potential investor at a conference.",
		Category:    "elevator-pitch",
		Keywords:    []string{"product", "customers", "problem", "solution", "market", "value", "growth"},
	},
	{
		ID:          "presentation-qa",
		Title:       "Presentation Q&A",
		Description: "Handle questions from the audience after a talk",
		Difficulty:  "intermediate",
		Context:     "You just finished presenting quarterly results to stakeholders.",
		Category:    "presentation",
		Keywords:    []string{"results", "numbers", "quarter", "plan", "data", "strategy", "risk"},
	},
	{
		ID:          "networking-event",
		Title:       "Networking Event",
		Description: "Start and sustain a conversation with a new contact",
		Difficulty:  "beginner",
		Context:     "You are at an industry meetup and approach someone new.",
		Category:    "networking",
		Keywords:    []string{"work", "industry", "company", "interests", "connect", "projects", "event"},
	},
	{
		ID:          "small-talk",
		Title:       "Casual Small Talk",
		Description: "Build rapport with relaxed everyday conversation",
		Difficulty:  "beginner",
		Category:    "networking",
	},
}

var defaultRoles = []InterviewerRole{
	{
		ID:                    "standard",
		Name:                  "Standard Interviewer",
		Description:           "Professional and balanced, interrupts only when answers run long",
		Prompt:                "You are a professional interviewer. Ask clear questions one at a time, listen carefully, and ask relevant follow-up questions. Keep your own replies concise.",
		InterruptionThreshold: 120,
		FillerWordTolerance:   0.7,
	},
	{
		ID:                    "tough",
		Name:                  "Tough Hiring Manager",
		Description:           "Direct and demanding, interrupts rambling or evasive answers",
		Prompt:                "You are a tough hiring manager. Ask direct, probing questions and expect specific answers. If the candidate rambles, uses too many filler words or avoids the question, interrupt them firmly and move on.",
		InterruptionThreshold: 60,
		FillerWordTolerance:   0.3,
	},
	{
		ID:                    "friendly",
		Name:                  "Friendly Recruiter",
		Description:           "Warm and encouraging, gives you room to think",
		Prompt:                "You are a friendly recruiter. Be warm and encouraging, help the candidate feel at ease, but still ask direct questions about their experience.",
		InterruptionThreshold: 180,
		FillerWordTolerance:   0.9,
	},
	{
		ID:                    "technical",
		Name:                  "Technical Lead",
		Description:           "Asks precise technical questions and expects precise answers",
		Prompt:                "You are a technical lead. Ask specific technical questions about tools, architecture and trade-offs, and expect precise answers backed by examples.",
		InterruptionThreshold: 90,
		FillerWordTolerance:   0.5,
	},
	{
		ID:                    "executive",
		Name:                  "Senior Executive",
		Description:           "Focuses on strategy, impact and big-picture thinking",
		Prompt:                "You are a senior executive. Ask strategic, big-picture questions about impact, priorities and leadership, and expect strategic thinking in the answers.",
		InterruptionThreshold: 90,
		FillerWordTolerance:   0.5,
	},
}
