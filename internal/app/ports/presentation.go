package ports

type SoundPort interface {
	Play(path string)
}

type SpeechPort interface {
	Speak(text string)
}

type ActivityPort interface {
	Add(kind, user, details string)
}
