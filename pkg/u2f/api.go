package u2f

import (
	"errors"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
)

// ApiTimeout bounds how long a registration or authentication ceremony may
// stay pending before its session is garbage collected.
const ApiTimeout = 10 * time.Second

// Cookie names carrying the opaque identifier tying a /begin call to its
// matching /complete call.
const (
	U2fRegistrationTokenId = "U2FRID"
	U2fTokenId             = "U2FTID"
)

// HTTP-visible authentication outcomes, passed to AuthenticationCallback.
const (
	U2F_STATUS_SUCCESS = 0
	U2F_STATUS_ERROR   = 1
	U2F_STATUS_FAILURE = 2
)

// RegistrationCallback is consulted at the start of RegisterBegin with the
// raw request body, so the caller can gate who is allowed to enroll a new
// credential (e.g. require an existing logged-in session).
type RegistrationCallback func(requestData []byte, request *http.Request) (ok bool)

// RegistrationCompletedCallback runs once a registration has been
// cryptographically verified and stored, so the caller can finish the HTTP
// response (set session cookies, etc). Returning false makes
// RegisterComplete answer 403 Forbidden and drop the pending ceremony; the
// credential already stored in the KeyDatabase stays registered.
type RegistrationCompletedCallback func(writer http.ResponseWriter, request *http.Request, identifier string) (ok bool)

// UserAuthenticationCallback is consulted at the start of
// AuthenticateBegin to resolve the request to the identifier whose
// credential should be challenged.
type UserAuthenticationCallback func(requestData []byte, request *http.Request) (ok bool, identifier string)

// AuthenticationCompletedCallback is AuthenticationCallback; kept as a
// distinct name at the Api boundary for symmetry with the other three
// callback types.
type AuthenticationCompletedCallback = AuthenticationCallback

type pendingRegistration struct {
	t   time.Time
	ctx *Ctx
}

type pendingAuthentication struct {
	t   time.Time
	ctx *Ctx
}

// Api wires the U2F registration and authentication ceremonies to a
// gorilla/mux router. It is a thin HTTP adapter over VerifyRegistration and
// VerifyAuthentication: all protocol-sensitive work happens in the core,
// this type only owns transport bookkeeping (pending ceremonies, cookies).
type Api struct {
	appID                 string
	db                    KeyDatabase
	secureCookie          *securecookie.SecureCookie
	registrationState     map[uuid.UUID]*pendingRegistration
	registrationStateLock sync.RWMutex
	authState             map[string]*pendingAuthentication
	authStateLock         sync.RWMutex

	authCallback                 UserAuthenticationCallback
	authCompleteCallback         AuthenticationCompletedCallback
	registrationCallback         RegistrationCallback
	registrationCompleteCallback RegistrationCompletedCallback

	attestationValidator   AttestationValidator
	exposeRegisterEndpoint bool
}

// NewU2FApi builds an Api and registers its routes on server. When
// exposeRegisterEndpoint is false, /auth/register/* is not mounted — useful
// for deployments that provision credentials out-of-band.
func NewU2FApi(server *mux.Router,
	db KeyDatabase,
	appID string,
	exposeRegisterEndpoint bool,
	cookieHashKey [32]byte,
	cookieBlockKey [32]byte,
	authCallback UserAuthenticationCallback,
	authCompletedCallback AuthenticationCompletedCallback,
	registrationCallback RegistrationCallback,
	registrationCompletedCallback RegistrationCompletedCallback) *Api {
	a := &Api{
		db:                           db,
		appID:                        appID,
		registrationState:            map[uuid.UUID]*pendingRegistration{},
		authState:                    map[string]*pendingAuthentication{},
		authCompleteCallback:         authCompletedCallback,
		registrationCompleteCallback: registrationCompletedCallback,
		registrationCallback:         registrationCallback,
		authCallback:                 authCallback,
		attestationValidator:         AllowAllAttestations,
		exposeRegisterEndpoint:       exposeRegisterEndpoint,
		secureCookie:                 securecookie.New(cookieHashKey[:], cookieBlockKey[:]),
	}
	if a.exposeRegisterEndpoint {
		server.HandleFunc("/auth/register/begin", a.RegisterBegin)
		server.HandleFunc("/auth/register/complete", a.RegisterComplete)
	}
	server.HandleFunc("/auth/authenticate/begin", a.AuthenticateBegin)
	server.HandleFunc("/auth/authenticate/complete", a.AuthenticateComplete)
	return a
}

// SetAttestationValidator installs the callback consulted by
// RegisterComplete between parsing the attestation certificate and
// checking its signature. Passing nil restores the default, which accepts
// every certificate.
func (a *Api) SetAttestationValidator(v AttestationValidator) {
	if v == nil {
		v = AllowAllAttestations
	}
	a.attestationValidator = v
}

func (a *Api) gc() {
	now := time.Now()
	a.authStateLock.Lock()
	for k, v := range a.authState {
		if now.After(v.t.Add(ApiTimeout)) {
			delete(a.authState, k)
		}
	}
	a.authStateLock.Unlock()

	a.registrationStateLock.Lock()
	for k, v := range a.registrationState {
		if now.After(v.t.Add(ApiTimeout)) {
			delete(a.registrationState, k)
		}
	}
	a.registrationStateLock.Unlock()
}

// newCeremonyCtx builds a Ctx for a single-origin relying party: the same
// string serves as both the AppID and the expected Origin, matching a
// deployment that runs U2F for one application at one URL.
func (a *Api) newCeremonyCtx() (*Ctx, error) {
	ctx := NewCtx()
	if err := ctx.SetAppID(a.appID); err != nil {
		return nil, err
	}
	if err := ctx.SetOrigin(a.appID); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (a *Api) RegisterBegin(writer http.ResponseWriter, request *http.Request) {
	a.gc()
	a.registrationStateLock.Lock()
	defer a.registrationStateLock.Unlock()

	requestData, err := ioutil.ReadAll(request.Body)
	if err != nil {
		requestData = nil
	}
	if !a.registrationCallback(requestData, request) {
		http.Error(writer, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	userID, err := uuid.NewRandom()
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx, err := a.newCeremonyCtx()
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	challenge, err := BuildRegistrationChallenge(ctx)
	if err != nil {
		log.Warnf("failed to build registration challenge: %v", err)
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	a.registrationState[userID] = &pendingRegistration{t: time.Now(), ctx: ctx}

	encoded, err := a.secureCookie.Encode(U2fRegistrationTokenId, userID.String())
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     U2fRegistrationTokenId,
		Value:    encoded,
		Path:     "/auth/register/",
		HttpOnly: true,
		Secure:   true,
		Expires:  time.Now().Add(ApiTimeout),
	})

	_, _ = writer.Write(challenge)
}

func (a *Api) RegisterComplete(writer http.ResponseWriter, request *http.Request) {
	a.gc()
	a.registrationStateLock.Lock()
	defer a.registrationStateLock.Unlock()

	var userIDStr string
	cookie, err := request.Cookie(U2fRegistrationTokenId)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if err := a.secureCookie.Decode(U2fRegistrationTokenId, cookie.Value, &userIDStr); err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pending, ok := a.registrationState[userID]
	if !ok {
		http.Error(writer, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if time.Now().After(pending.t.Add(ApiTimeout)) {
		delete(a.registrationState, userID)
		http.Error(writer, http.StatusText(http.StatusRequestTimeout), http.StatusRequestTimeout)
		return
	}

	requestData, err := ioutil.ReadAll(request.Body)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	result, err := VerifyRegistration(pending.ctx, requestData, a.attestationValidator)
	if err != nil {
		log.Infof("registration verification failed for id %s: %v", userID, err)
		if errors.Is(err, ErrChallenge) || errors.Is(err, ErrOrigin) || errors.Is(err, ErrCrypto) {
			http.Error(writer, http.StatusText(http.StatusNotAcceptable), http.StatusNotAcceptable)
		} else {
			http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	keyHandleRaw, err := WebSafeB64Decode(result.KeyHandle)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := a.db.Register(userID.String(), keyHandleRaw, result.PublicKeyRaw); err != nil {
		http.Error(writer, http.StatusText(http.StatusConflict), http.StatusConflict)
		return
	}

	if !a.registrationCompleteCallback(writer, request, userID.String()) {
		delete(a.registrationState, userID)
		http.Error(writer, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	delete(a.registrationState, userID)
}

func (a *Api) AuthenticateBegin(writer http.ResponseWriter, request *http.Request) {
	a.gc()
	a.authStateLock.Lock()
	defer a.authStateLock.Unlock()

	requestData, err := ioutil.ReadAll(request.Body)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	authSuccessful, keyIdentifier := a.authCallback(requestData, request)
	if !authSuccessful {
		http.Error(writer, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	if _, ok := a.authState[keyIdentifier]; ok {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}

	keyHandle, err := a.db.GetKeyHandle(keyIdentifier)
	if err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}
	pubKey, err := a.db.GetPublicKey(keyIdentifier)
	if err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}

	ctx, err := a.newCeremonyCtx()
	if err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}
	if err := ctx.SetKeyHandle(keyHandle); err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}
	if err := ctx.SetPublicKeyParsed(pubKey); err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}

	challenge, err := BuildAuthenticationChallenge(ctx)
	if err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}

	a.authState[keyIdentifier] = &pendingAuthentication{t: time.Now(), ctx: ctx}

	encoded, err := a.secureCookie.Encode(U2fTokenId, keyIdentifier)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     U2fTokenId,
		Value:    encoded,
		Path:     "/auth/",
		HttpOnly: true,
		Secure:   true,
		Expires:  time.Now().Add(ApiTimeout),
	})

	_, _ = writer.Write(challenge)
}

func (a *Api) AuthenticateComplete(writer http.ResponseWriter, request *http.Request) {
	a.gc()
	a.authStateLock.Lock()
	defer a.authStateLock.Unlock()

	var keyIdentifier string
	cookie, err := request.Cookie(U2fTokenId)
	if err != nil {
		http.Error(writer, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if err := a.secureCookie.Decode(U2fTokenId, cookie.Value, &keyIdentifier); err != nil {
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pending, ok := a.authState[keyIdentifier]
	if !ok {
		// we didn't see a call to /auth/authenticate/begin for this identifier
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}
	if time.Now().After(pending.t.Add(ApiTimeout)) {
		delete(a.authState, keyIdentifier)
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}
	delete(a.authState, keyIdentifier)

	requestData, err := ioutil.ReadAll(request.Body)
	if err != nil {
		a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		return
	}

	result, err := VerifyAuthentication(pending.ctx, requestData)
	if err != nil {
		log.Infof("authentication verification failed for id %s: %v", keyIdentifier, err)
		if errors.Is(err, ErrChallenge) || errors.Is(err, ErrOrigin) || errors.Is(err, ErrCrypto) {
			a.authCompleteCallback(U2F_STATUS_FAILURE, writer, request, keyIdentifier)
		} else {
			a.authCompleteCallback(U2F_STATUS_ERROR, writer, request, keyIdentifier)
		}
		return
	}

	if !result.Verified {
		a.authCompleteCallback(U2F_STATUS_FAILURE, writer, request, keyIdentifier)
		return
	}
	a.authCompleteCallback(U2F_STATUS_SUCCESS, writer, request, keyIdentifier)
}
