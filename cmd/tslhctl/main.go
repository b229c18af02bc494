package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/tslh-dsa/tslh"

	"github.com/urfave/cli"
)

func cmdAlgs(c *cli.Context) error {
	for _, name := range tslh.ListNames() {
		p, err := tslh.ParamsFromName(name)
		if err != nil {
			return err
		}
		fmt.Println(p.String())
	}
	return nil
}

func cmdKeygen(c *cli.Context) error {
	alg := c.Args().First()
	if alg == "" {
		return cli.NewExitError("usage: tslhctl keygen <alg> <priv-file> <pub-file>", 1)
	}
	privPath := c.Args().Get(1)
	pubPath := c.Args().Get(2)
	if privPath == "" || pubPath == "" {
		return cli.NewExitError("usage: tslhctl keygen <alg> <priv-file> <pub-file>", 1)
	}

	sk, pk, err := tslh.GenerateKeyPair(alg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	skBuf, _ := sk.MarshalBinary()
	pkBuf, _ := pk.MarshalBinary()

	if err := ioutil.WriteFile(privPath, skBuf, 0600); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := ioutil.WriteFile(pubPath, pkBuf, 0644); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Printf("wrote %s and %s for %s\n", privPath, pubPath, alg)
	return nil
}

func cmdSign(c *cli.Context) error {
	alg := c.Args().First()
	privPath := c.Args().Get(1)
	msgPath := c.Args().Get(2)
	if alg == "" || privPath == "" || msgPath == "" {
		return cli.NewExitError("usage: tslhctl sign <alg> <priv-file> <msg-file>", 1)
	}

	p, err := tslh.ParamsFromName(alg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	skBuf, ferr := ioutil.ReadFile(privPath)
	if ferr != nil {
		return cli.NewExitError(ferr.Error(), 1)
	}
	sk, err := tslh.UnmarshalPrivateKey(skBuf, p)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	msg, ferr := ioutil.ReadFile(msgPath)
	if ferr != nil {
		return cli.NewExitError(ferr.Error(), 1)
	}

	var sig *tslh.Signature
	if c.Bool("deterministic") {
		sig, err = sk.SignDeterministic(msg)
	} else {
		sig, err = sk.Sign(msg)
	}
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	sigBuf, _ := sig.MarshalBinary()
	fmt.Println(hex.EncodeToString(sigBuf))
	return nil
}

func cmdVerify(c *cli.Context) error {
	alg := c.Args().First()
	pubPath := c.Args().Get(1)
	msgPath := c.Args().Get(2)
	sigHex := c.Args().Get(3)
	if alg == "" || pubPath == "" || msgPath == "" || sigHex == "" {
		return cli.NewExitError("usage: tslhctl verify <alg> <pub-file> <msg-file> <sig-hex>", 1)
	}

	p, err := tslh.ParamsFromName(alg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	pkBuf, ferr := ioutil.ReadFile(pubPath)
	if ferr != nil {
		return cli.NewExitError(ferr.Error(), 1)
	}
	msg, ferr := ioutil.ReadFile(msgPath)
	if ferr != nil {
		return cli.NewExitError(ferr.Error(), 1)
	}
	sigBuf, herr := hex.DecodeString(sigHex)
	if herr != nil {
		return cli.NewExitError(herr.Error(), 1)
	}

	ok, err := tslh.Verify(pkBuf, sigBuf, msg, p)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if !ok {
		fmt.Println("invalid")
		os.Exit(1)
	}
	fmt.Println("valid")
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "tslhctl"
	app.Usage = "generate, sign and verify with threshold-masked SLH-DSA-SHAKE keys"

	app.Commands = []cli.Command{
		{
			Name:   "algs",
			Usage:  "List registered parameter sets",
			Action: cmdAlgs,
		},
		{
			Name:      "keygen",
			Usage:     "Generate a fresh keypair",
			ArgsUsage: "<alg> <priv-file> <pub-file>",
			Action:    cmdKeygen,
		},
		{
			Name:      "sign",
			Usage:     "Sign a file, printing the hex-encoded signature",
			ArgsUsage: "<alg> <priv-file> <msg-file>",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "deterministic",
					Usage: "derive the message randomizer from the public seed instead of crypto/rand",
				},
			},
			Action: cmdSign,
		},
		{
			Name:      "verify",
			Usage:     "Verify a hex-encoded signature against a file",
			ArgsUsage: "<alg> <pub-file> <msg-file> <sig-hex>",
			Action:    cmdVerify,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
