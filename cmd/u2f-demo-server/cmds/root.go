package cmds

import (
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/securecookie"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openu2f/u2fserver/pkg/u2f"
)

const (
	KeyFile      = "u2f-server-key.pem"
	CertFile     = "u2f-server.crt"
	MyU2fTokenId = "MyUID"
)

var secureCookie *securecookie.SecureCookie

func AuthCompletedCallback(authStatus int, writer http.ResponseWriter, _ *http.Request, keyIdentifier string) {
	switch authStatus {
	case u2f.U2F_STATUS_SUCCESS:
		log.Infof("authentication successful for id %v", keyIdentifier)
		cookie := &http.Cookie{
			Name:     "SID",
			Value:    "some data authenticating a user session",
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			Expires:  time.Now().Add(10 * time.Hour * 24 * 365 * 10),
		}
		http.SetCookie(writer, cookie)
		http.Error(writer, http.StatusText(http.StatusOK), http.StatusOK)
	case u2f.U2F_STATUS_ERROR:
		log.Infof("authentication error for id %v", keyIdentifier)
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	case u2f.U2F_STATUS_FAILURE:
		log.Infof("authentication failed for id %v", keyIdentifier)
		http.Error(writer, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
}

func AuthCallback(authData []byte, request *http.Request) (authSuccessful bool, keyIdentifier string) {
	/*
		In a real application this callback would deal with authenticating the user and retrieving the matching keyIdentifier
		for this user.
	*/
	log.Infof("authentication data %v", string(authData))
	cookie, err := request.Cookie(MyU2fTokenId)
	if err != nil {
		return false, ""
	}
	if err := secureCookie.Decode(MyU2fTokenId, cookie.Value, &keyIdentifier); err != nil {
		return false, ""
	}
	return true, keyIdentifier
}

func RegisterCallback(_ []byte, _ *http.Request) bool {
	/*
		A real application would require an authenticated session before
		allowing a new credential to be enrolled. This demo allows anyone
		to register.
	*/
	return true
}

func RegistrationCompletedCallback(writer http.ResponseWriter, _ *http.Request, keyIdentifier string) (ok bool) {
	encoded, err := secureCookie.Encode(MyU2fTokenId, keyIdentifier)
	if err != nil {
		return false
	}
	cookie := &http.Cookie{
		Name:     MyU2fTokenId,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		Expires:  time.Now().Add(10 * time.Hour * 24 * 365 * 10),
	}
	http.SetCookie(writer, cookie)
	return true
}

var rootCmd = &cobra.Command{
	Use:   "u2f-server",
	Short: "U2F Demo Server",
	Long:  `Starts a U2F demo server.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Infof("starting U2F demo server")

		domain, err := cmd.Flags().GetString("domain")
		if err != nil {
			panic(err)
		}
		bindAddress, err := cmd.Flags().GetString("bind-address")
		if err != nil {
			panic(err)
		}
		port, err := cmd.Flags().GetUint16("port")
		if err != nil {
			panic(err)
		}
		requireAttestationOrg, err := cmd.Flags().GetString("require-attestation-org")
		if err != nil {
			panic(err)
		}

		if err := u2f.GenerateCertificate(domain, "U2F Demo Server", CertFile, KeyFile); err != nil {
			log.Fatalf("failed to generate a selfsigned certificate due to %v", err)
			return
		}

		server := u2f.NewHTTPServer(bindAddress, port, domain, "./html", CertFile, KeyFile)
		if server == nil {
			log.Fatal("could not start server")
		}

		masterSecret, err := u2f.NewRandomMasterSecret()
		if err != nil {
			log.Fatalf("error %v", err)
		}
		hashKey, blockKey, err := u2f.DeriveCookieKeys(masterSecret)
		if err != nil {
			log.Fatalf("error %v", err)
		}
		api := u2f.NewU2FApi(server.GetRouter(),
			u2f.NewMemDB(),
			fmt.Sprintf("https://%s:%d", domain, port),
			true,
			hashKey,
			blockKey,
			AuthCallback,
			AuthCompletedCallback,
			RegisterCallback,
			RegistrationCompletedCallback)

		if requireAttestationOrg != "" {
			api.SetAttestationValidator(func(cert *x509.Certificate) error {
				for _, org := range cert.Subject.Organization {
					if org == requireAttestationOrg {
						return nil
					}
				}
				return fmt.Errorf("attestation certificate organization does not match %q", requireAttestationOrg)
			})
		}

		if err := server.Start(); err != nil {
			log.Errorf("could not start the server due to %v", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetOutput(os.Stdout)
	rootCmd.Flags().StringP("domain", "d", "localhost", "The domain where the server is hosted")
	rootCmd.Flags().StringP("bind-address", "i", "0.0.0.0", "Bind address of the server")
	rootCmd.Flags().Uint16P("port", "p", 8443, "Port port where the server is hosted")
	rootCmd.Flags().String("require-attestation-org", "", "If set, reject registrations whose attestation certificate organization doesn't match")

	masterSecret, err := u2f.NewRandomMasterSecret()
	if err != nil {
		log.Fatalf("error %v", err)
	}
	hashKey, blockKey, err := u2f.DeriveCookieKeys(masterSecret)
	if err != nil {
		log.Fatalf("error %v", err)
	}
	secureCookie = securecookie.New(hashKey[:], blockKey[:])
}
