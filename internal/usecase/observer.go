package usecase

// Observer receives the degradations the usecases absorb instead of returning.
type Observer interface {
	ObserveDegradation(source, reason string)
	ObserveChat(status int)
	ObserveStorageFailure(operation string)
}

type nopObserver struct{}

func (nopObserver) ObserveDegradation(string, string) {}
func (nopObserver) ObserveChat(int)                   {}
func (nopObserver) ObserveStorageFailure(string)      {}
