package lang

// Catalog holds every outbound message template for one language. Loaded once
// at startup from the configured language selector; immutable afterwards.
//
// Slots use fmt verbs: %d for position/duration/order id, %s for code,
// species, worker identity, or reason.
type Catalog struct {
	ConnectionSuccess    string
	InvalidOrderID       string
	AlreadyInQueue       string
	QueueNotAccepting    string
	QueuePosition        string // %d = position
	QueueEstimatedTime   string // %d = minutes
	TradeInitFailed      string
	SetParseError        string // %d = order id, %s = offending lines
	TimeoutError         string // %s = species
	VersionMismatchError string
	GeneralError         string // %s = species
	TradeCanceled        string // %s = reason
	TradeFinished        string // %s = species
	TradeFinishedGeneric string
	TradeInitialize      string // %s = formatted code
	TradeSearching       string // %s = worker identity
	TradeInProgress      string
	TradeDiscarded       string
}

func English() Catalog {
	return Catalog{
		ConnectionSuccess:    "Connected to server.",
		InvalidOrderID:       "OrderID is invalid.",
		AlreadyInQueue:       "You are already in the queue!",
		QueueNotAccepting:    "Sorry, I'm not accepting requests at the moment!",
		QueuePosition:        "You are in position %d in the queue.",
		QueueEstimatedTime:   "The estimated time to wait is %d minutes.",
		TradeInitFailed:      "Failed to initialize trade.",
		SetParseError:        "%d: Unable to parse set:\n%s",
		TimeoutError:         "That %s set took too long to generate.",
		VersionMismatchError: "Request refused: legalizer version mismatch.",
		GeneralError:         "I wasn't able to create a %s from that set.",
		TradeCanceled:        "Trade canceled, %s",
		TradeFinished:        "Trade finished. Enjoy your %s!",
		TradeFinishedGeneric: "Trade finished!",
		TradeInitialize:      "Your trade code will be : %s. Wait for my signal before joining.",
		TradeSearching:       "I'm waiting for you ! My IGN is %s.",
		TradeInProgress:      "Your trade is already in progress and cannot be withdrawn.",
		TradeDiscarded:       "Your trade was already in progress; its result will be discarded.",
	}
}

func French() Catalog {
	return Catalog{
		ConnectionSuccess:    "Connecté au serveur.",
		InvalidOrderID:       "L'ID de commande est invalide.",
		AlreadyInQueue:       "Vous êtes déjà dans la file d'attente !",
		QueueNotAccepting:    "Désolé, je n'accepte pas de demande à l'heure actuelle !",
		QueuePosition:        "Vous êtes en position %d dans la file d'attente.",
		QueueEstimatedTime:   "Le temps d'attente estimé est de %d minutes.",
		TradeInitFailed:      "Échec de l'initialisation du trade.",
		SetParseError:        "%d : Impossible de parser le set :\n%s",
		TimeoutError:         "Ce set de %s a pris trop de temps à générer.",
		VersionMismatchError: "Requête refusée : incompatibilité de version du légaliseur.",
		GeneralError:         "Je n'ai pas pu créer un %s à partir de ce set.",
		TradeCanceled:        "Trade annulé, %s",
		TradeFinished:        "Trade terminé. Profitez de votre %s !",
		TradeFinishedGeneric: "Trade terminé !",
		TradeInitialize:      "Votre code de trade sera : %s. Attends mon signal pour rejoindre.",
		TradeSearching:       "Je vous attends ! Mon IGN est %s.",
		TradeInProgress:      "Votre trade est déjà en cours et ne peut pas être retiré.",
		TradeDiscarded:       "Votre trade était déjà en cours ; son résultat sera ignoré.",
	}
}

// ForLanguage maps the configured selector to a catalog, defaulting to French
// like the reference deployment.
func ForLanguage(code string) Catalog {
	switch code {
	case "EN", "en":
		return English()
	default:
		return French()
	}
}
